package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
	"github.com/kotor-apartments/stayboard/internal/dashboard/export"
	"github.com/kotor-apartments/stayboard/internal/dashboard/svg"
	"github.com/kotor-apartments/stayboard/internal/platform/httpx"
	"github.com/kotor-apartments/stayboard/internal/property"
	"github.com/kotor-apartments/stayboard/internal/shared"
	"github.com/kotor-apartments/stayboard/internal/view"
)

const (
	requestTimeout      = 5 * time.Second
	defaultRecordsLimit = 10
)

var errPDFUnavailable = errors.New("dashboard: pdf exporter not configured")

// SnapshotService supplies the record collections for one render.
type SnapshotService interface {
	Snapshot(ctx context.Context) dashboard.Snapshot
}

// Refresher stamps the "last updated" time.
type Refresher interface {
	Refresh(ctx context.Context) (time.Time, error)
	Busy() bool
	LastUpdated() time.Time
}

// ViewerResolver maps the session user to the dashboard header identity.
type ViewerResolver interface {
	Viewer(ctx context.Context, userID string) (*dashboard.Viewer, error)
}

// PDFRenderer converts an HTML document to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ChartRenderer draws the revenue chart.
type ChartRenderer interface {
	Area(width, height int, labels []string, current, previous []float64, opts svg.AreaOpts) (template.HTML, error)
}

// ChartFunc adapts a plain function to ChartRenderer.
type ChartFunc func(width, height int, labels []string, current, previous []float64, opts svg.AreaOpts) (template.HTML, error)

// Area calls f.
func (f ChartFunc) Area(width, height int, labels []string, current, previous []float64, opts svg.AreaOpts) (template.HTML, error) {
	return f(width, height, labels, current, previous, opts)
}

// Deps groups the collaborators of Handler. Viewers, PDF, Records and CSRF
// are optional.
type Deps struct {
	Logger    *slog.Logger
	Service   SnapshotService
	Refresher Refresher
	Viewers   ViewerResolver
	Templates *view.Engine
	Chart     ChartRenderer
	PDF       PDFRenderer
	Records   property.Lister
	CSRF      *shared.CSRFManager
	Location  *time.Location
}

// Handler serves the dashboard in HTML, JSON, CSV and PDF form.
type Handler struct {
	logger    *slog.Logger
	service   SnapshotService
	refresher Refresher
	viewers   ViewerResolver
	templates *view.Engine
	chart     ChartRenderer
	pdf       PDFRenderer
	records   property.Lister
	csrf      *shared.CSRFManager
	loc       *time.Location
	validate  *validator.Validate
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		logger:    deps.Logger,
		service:   deps.Service,
		refresher: deps.Refresher,
		viewers:   deps.Viewers,
		templates: deps.Templates,
		chart:     deps.Chart,
		pdf:       deps.PDF,
		records:   deps.Records,
		csrf:      deps.CSRF,
		loc:       deps.Location,
		validate:  validator.New(),
		now:       time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.chart == nil {
		h.chart = ChartFunc(svg.Area)
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type filterQuery struct {
	Search       string `validate:"max=120"`
	Reservations string `validate:"omitempty,oneof=all active cancelled"`
	Cleaning     string `validate:"omitempty,oneof=all scheduled in_progress completed cancelled rescheduled"`
	Apartments   string `validate:"omitempty,oneof=all available occupied"`
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

var queryFields = map[string]string{
	"Search":       "q",
	"Reservations": "reservations",
	"Cleaning":     "cleaning",
	"Apartments":   "apartments",
}

func (h *Handler) parseFilters(r *http.Request) (dashboard.Filters, error) {
	q := r.URL.Query()
	fq := filterQuery{
		Search:       q.Get("q"),
		Reservations: strings.ToLower(strings.TrimSpace(q.Get("reservations"))),
		Cleaning:     strings.ToLower(strings.TrimSpace(q.Get("cleaning"))),
		Apartments:   strings.ToLower(strings.TrimSpace(q.Get("apartments"))),
	}
	if err := h.validate.Struct(fq); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return dashboard.Filters{}, validationError{field: queryFields[fieldErrs[0].Field()]}
		}
		return dashboard.Filters{}, err
	}
	return dashboard.Filters{
		Search:       fq.Search,
		Reservations: fq.Reservations,
		Cleaning:     fq.Cleaning,
		Apartments:   fq.Apartments,
	}.Normalize(), nil
}

type rendered struct {
	vm       dashboard.ViewModel
	degraded bool
}

func (h *Handler) build(r *http.Request, filters dashboard.Filters) rendered {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap := h.service.Snapshot(ctx)
	lastUpdated := time.Time{}
	if h.refresher != nil {
		lastUpdated = h.refresher.LastUpdated().In(h.loc)
	}
	vm := dashboard.Build(dashboard.Input{
		Apartments:   snap.Apartments,
		Reservations: snap.Reservations,
		CleaningJobs: snap.CleaningJobs,
		Filters:      filters,
		Now:          h.now().In(h.loc),
		LastUpdated:  lastUpdated,
		Viewer:       h.resolveViewer(ctx, r),
	})
	return rendered{vm: vm, degraded: snap.Degraded}
}

func (h *Handler) resolveViewer(ctx context.Context, r *http.Request) *dashboard.Viewer {
	sess := shared.SessionFromContext(r.Context())
	if h.viewers == nil || sess.User() == "" {
		return nil
	}
	viewer, err := h.viewers.Viewer(ctx, sess.User())
	if err != nil {
		h.logger.Warn("resolve viewer, continuing anonymously", slog.Any("error", err))
		return nil
	}
	return viewer
}

func (h *Handler) renderChart(vm dashboard.ViewModel, width, height int) (template.HTML, error) {
	labels := make([]string, 0, len(vm.Chart))
	current := make([]float64, 0, len(vm.Chart))
	previous := make([]float64, 0, len(vm.Chart))
	estimated := make([]bool, 0, len(vm.Chart))
	for _, point := range vm.Chart {
		labels = append(labels, point.Month)
		current = append(current, point.Current)
		previous = append(previous, point.Previous)
		estimated = append(estimated, point.Placeholder)
	}
	return h.chart.Area(width, height, labels, current, previous, svg.AreaOpts{
		Title:         "Revenue trend",
		Description:   "Guest-paid revenue per month compared with the month before",
		CurrentLabel:  "Revenue",
		PreviousLabel: "Previous month",
		Estimated:     estimated,
	})
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type selectField struct {
	Name    string
	Label   string
	Options []option
}

func newSelect(name, label, current string, values ...string) selectField {
	field := selectField{Name: name, Label: label}
	for _, v := range values {
		text := "All"
		if v != dashboard.FilterAll {
			text = strings.ToUpper(v[:1]) + strings.ReplaceAll(v[1:], "_", " ")
		}
		field.Options = append(field.Options, option{Value: v, Label: text, Selected: v == current})
	}
	return field
}

type pageData struct {
	VM                dashboard.ViewModel
	Chart             template.HTML
	HasSamples        bool
	Degraded          bool
	Refreshing        bool
	Query             template.URL
	ReturnTo          string
	ReservationFilter selectField
	CleaningFilter    selectField
	ApartmentFilter   selectField
}

func (h *Handler) buildPage(r *http.Request, res rendered, width, height int) (pageData, error) {
	chart, err := h.renderChart(res.vm, width, height)
	if err != nil {
		return pageData{}, err
	}
	filters := res.vm.Filters
	cleaning := []string{dashboard.FilterAll}
	for _, status := range property.JobStatuses {
		cleaning = append(cleaning, string(status))
	}
	data := pageData{
		VM:                res.vm,
		Chart:             chart,
		Degraded:          res.degraded,
		Query:             template.URL(filterValues(filters).Encode()),
		ReturnTo:          r.URL.RequestURI(),
		ReservationFilter: newSelect("reservations", "Reservations", filters.Reservations, dashboard.FilterAll, dashboard.ReservationActive, dashboard.ReservationCancelled),
		CleaningFilter:    newSelect("cleaning", "Cleaning", filters.Cleaning, cleaning...),
		ApartmentFilter:   newSelect("apartments", "Apartments", filters.Apartments, dashboard.FilterAll, dashboard.ApartmentAvailable, dashboard.ApartmentOccupied),
	}
	if h.refresher != nil {
		data.Refreshing = h.refresher.Busy()
	}
	for _, point := range res.vm.Chart {
		if point.Placeholder {
			data.HasSamples = true
			break
		}
	}
	return data, nil
}

func filterValues(f dashboard.Filters) url.Values {
	values := url.Values{}
	if f.Search != "" {
		values.Set("q", f.Search)
	}
	for key, v := range map[string]string{"reservations": f.Reservations, "cleaning": f.Cleaning, "apartments": f.Apartments} {
		if v != "" && v != dashboard.FilterAll {
			values.Set(key, v)
		}
	}
	return values
}

func (h *Handler) templateData(r *http.Request, title string, vm dashboard.ViewModel, data any) view.TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := view.TemplateData{
		Title:       title,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Viewer:      vm.Viewer,
		Data:        data,
	}
	if h.csrf != nil && sess != nil {
		token, err := h.csrf.EnsureToken(r.Context(), sess)
		if err != nil {
			h.logError("csrf token", err)
		}
		td.CSRFToken = token
	}
	return td
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	res := h.build(r, filters)
	data, err := h.buildPage(r, res, svg.DefaultWidth, svg.DefaultHeight)
	if err != nil {
		h.handleServerError(w, "render chart", err)
		return
	}
	if err := h.templates.Render(w, "pages/dashboard.html", h.templateData(r, "Dashboard", res.vm, data)); err != nil {
		h.handleServerError(w, "render dashboard", err)
	}
}

type dashboardResponse struct {
	dashboard.ViewModel
	Degraded bool `json:"degraded"`
}

func (h *Handler) handleJSON(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	res := h.build(r, filters)
	httpx.JSON(w, http.StatusOK, dashboardResponse{ViewModel: res.vm, Degraded: res.degraded})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	res := h.build(r, filters)

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteDashboardCSV(buf, res.vm); err != nil {
		h.handleServerError(w, "write dashboard csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName(res.vm, "csv")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleServerError(w, "pdf exporter", errPDFUnavailable)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	res := h.build(r, filters)
	data, err := h.buildPage(r, res, svg.DefaultWidth, svg.DefaultHeight)
	if err != nil {
		h.handleServerError(w, "render chart", err)
		return
	}

	var doc bytes.Buffer
	if err := h.templates.Execute(&doc, "pages/dashboard_print.html", view.TemplateData{Title: "Dashboard", Data: data}); err != nil {
		h.handleServerError(w, "render print view", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	pdfBytes, err := h.pdf.RenderHTML(ctx, doc.String())
	if err != nil {
		h.logError("render pdf", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName(res.vm, "pdf")))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func exportName(vm dashboard.ViewModel, ext string) string {
	return fmt.Sprintf("stayboard-dashboard-%s.%s", vm.GeneratedAt.Format("2006-01-02"), ext)
}

type refreshResponse struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Skipped     bool      `json:"skipped"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		h.handleServerError(w, "refresh", errors.New("refresher not configured"))
		return
	}
	skipped := h.refresher.Busy()
	stamp, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.logger.Warn("refresh interrupted", slog.Any("error", err))
	}

	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, refreshResponse{LastUpdated: stamp.In(h.loc), Skipped: skipped})
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		msg := shared.FlashMessage{Kind: "success", Message: "Dashboard refreshed"}
		if skipped {
			msg = shared.FlashMessage{Kind: "info", Message: "A refresh is already in progress"}
		}
		sess.AddFlash(msg)
	}
	http.Redirect(w, r, safeReturn(r.PostFormValue("return")), http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// safeReturn keeps redirects on this host.
func safeReturn(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

type recordsQuery struct {
	Limit int `validate:"min=1,max=100"`
}

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		httpx.RespondError(w, fmt.Errorf("records source: %w", httpx.ErrUnavailable))
		return
	}
	collection := chi.URLParam(r, "collection")

	rq := recordsQuery{Limit: defaultRecordsLimit}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("limit must be a number: %w", httpx.ErrValidation))
			return
		}
		rq.Limit = limit
	}
	if err := h.validate.Struct(rq); err != nil {
		httpx.RespondError(w, fmt.Errorf("limit must be between 1 and 100: %w", httpx.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := property.ListCollection(ctx, h.records, collection, rq.Limit)
	if err != nil {
		if errors.Is(err, property.ErrUnknownCollection) {
			httpx.RespondError(w, fmt.Errorf("collection %q: %w", collection, httpx.ErrNotFound))
			return
		}
		h.logError("list records", err)
		httpx.RespondError(w, fmt.Errorf("list %s: %w", collection, httpx.ErrUnavailable))
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		http.Error(w, "Invalid filter: "+vErr.field, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}
