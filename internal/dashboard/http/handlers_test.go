package dashboardhttp

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
	"github.com/kotor-apartments/stayboard/internal/dashboard/svg"
	"github.com/kotor-apartments/stayboard/internal/property"
	"github.com/kotor-apartments/stayboard/internal/shared"
	"github.com/kotor-apartments/stayboard/internal/view"
)

var fixedNow = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)

type stubService struct {
	snap dashboard.Snapshot
}

func (s stubService) Snapshot(ctx context.Context) dashboard.Snapshot { return s.snap }

type stubViewers struct {
	viewer *dashboard.Viewer
	err    error
}

func (s stubViewers) Viewer(ctx context.Context, userID string) (*dashboard.Viewer, error) {
	return s.viewer, s.err
}

type stubPDF struct {
	html string
	err  error
}

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

type stubRecords struct {
	owners []property.Owner
	err    error
}

func (s stubRecords) ListApartments(context.Context, int) ([]property.Apartment, error) {
	return nil, s.err
}
func (s stubRecords) ListOwners(_ context.Context, limit int) ([]property.Owner, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.owners) {
		return s.owners[:limit], nil
	}
	return s.owners, nil
}
func (s stubRecords) ListCleaners(context.Context, int) ([]property.Cleaner, error) {
	return nil, s.err
}
func (s stubRecords) ListReservations(context.Context, int) ([]property.Reservation, error) {
	return nil, s.err
}
func (s stubRecords) ListCleaningJobs(context.Context, int) ([]property.CleaningJob, error) {
	return nil, s.err
}
func (s stubRecords) ListOwnerExpenses(context.Context, int) ([]property.OwnerExpense, error) {
	return nil, s.err
}
func (s stubRecords) ListPaymentDetails(context.Context, int) ([]property.PaymentDetail, error) {
	return nil, s.err
}
func (s stubRecords) ListMonthlyOwnerLedgers(context.Context, int) ([]property.MonthlyOwnerLedger, error) {
	return nil, s.err
}

func ptr[T any](v T) *T { return &v }

func fixtureSnapshot() dashboard.Snapshot {
	noah := property.Apartment{ID: "A1", ApartmentName: "Noah Apartment", Owner: property.Embed(property.Owner{ID: "O1", Name: "Milica"})}
	studio := property.Apartment{ID: "A2", ApartmentName: "Garden Studio"}
	return dashboard.Snapshot{
		Apartments: []property.Apartment{noah, studio},
		Reservations: []property.Reservation{
			{ID: "R1", Apartment: property.Embed(noah), CheckInDateTime: time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC), CheckOutDateTime: time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC), GuestPaidAmount: ptr(150.0), GuestDetails: &property.GuestDetails{GuestName: ptr("Ana")}},
			{ID: "R2", Apartment: property.RefID[property.Apartment]("A2"), CheckInDateTime: time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), CheckOutDateTime: time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC), IsCancelled: ptr(true), GuestDetails: &property.GuestDetails{GuestName: ptr("Luka")}},
		},
		CleaningJobs: []property.CleaningJob{
			{ID: "J1", Apartment: property.Embed(noah), Cleaner: property.Embed(property.Cleaner{ID: "C1", CleanerName: "Jelena"}), CleaningDate: fixedNow, JobStatus: property.JobScheduled},
		},
		FetchedAt: fixedNow,
	}
}

type testEnv struct {
	handler  *Handler
	router   chi.Router
	sessions *shared.SessionManager
	pdf      *stubPDF
}

func newTestEnv(t *testing.T, deps Deps) *testEnv {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)

	pdf := &stubPDF{}
	if deps.Service == nil {
		deps.Service = stubService{snap: fixtureSnapshot()}
	}
	if deps.Refresher == nil {
		deps.Refresher = dashboard.NewRefresher(0, func() time.Time { return fixedNow })
	}
	if deps.PDF == nil {
		deps.PDF = pdf
	}
	deps.Templates = templates
	deps.CSRF = shared.NewCSRFManager("csrf")
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewHandler(deps)
	handler.WithNow(func() time.Time { return fixedNow })

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			if user := r.Header.Get("X-Test-User"); user != "" {
				sess.SetUser(user)
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	handler.MountRoutes(router)
	return &testEnv{handler: handler, router: router, sessions: sessions, pdf: pdf}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestDashboardRendersStatsAndRows(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Total Apartments")
	assert.Contains(t, body, "Monthly Revenue")
	assert.Contains(t, body, "$150")
	assert.Contains(t, body, "Noah Apartment")
	assert.Contains(t, body, "Jelena")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Hollow markers")
	assert.Contains(t, body, `name="csrf_token"`)
}

func TestDashboardAppliesSearch(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/dashboard?q=noah&reservations=active", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Filters      dashboard.Filters          `json:"filters"`
		Reservations []dashboard.ReservationRow `json:"reservations"`
		Apartments   []dashboard.ApartmentRow   `json:"apartments"`
		Degraded     bool                       `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "noah", resp.Filters.Search)
	assert.Equal(t, "all", resp.Filters.Apartments)
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, "R1", resp.Reservations[0].ID)
	require.Len(t, resp.Apartments, 1)
	assert.Equal(t, "Noah Apartment", resp.Apartments[0].Name)
	assert.False(t, resp.Degraded)
}

func TestDashboardRejectsUnknownFilter(t *testing.T) {
	env := newTestEnv(t, Deps{})
	for _, target := range []string{"/?reservations=pending", "/api/dashboard?cleaning=dirty", "/?apartments=booked"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestDashboardReportsDegradedSnapshot(t *testing.T) {
	env := newTestEnv(t, Deps{Service: stubService{snap: dashboard.Snapshot{Degraded: true}}})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"degraded":true`)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "some data could not be loaded")
	assert.Contains(t, rr.Body.String(), "No reservations match.")
}

func TestDashboardShowsViewerAndFallsBackToAnonymous(t *testing.T) {
	env := newTestEnv(t, Deps{Viewers: stubViewers{viewer: &dashboard.Viewer{ID: "1", Name: "Mila Admin"}}})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-User", "1")
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Mila Admin")

	broken := newTestEnv(t, Deps{Viewers: stubViewers{err: errors.New("db down")}})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-User", "1")
	rr = broken.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Sign in")
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "stayboard-dashboard-2024-03-15.csv")
	assert.Contains(t, rr.Body.String(), "Mar 2024,150.00,")
	assert.Contains(t, rr.Body.String(), "R1,Ana,Noah Apartment,2024-03-14,2024-03-17,150.00,Confirmed")
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t, Deps{})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/export.pdf?q=noah", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rr.Body.String())
	assert.Contains(t, env.pdf.html, "Stayboard dashboard")
	assert.Contains(t, env.pdf.html, `search "noah"`)
}

func TestExportPDFUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, Deps{PDF: &stubPDF{err: errors.New("gotenberg down")}})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/export.pdf", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestExportsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, Deps{})
	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		last = env.do(req).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRefreshRedirectsWithFlash(t *testing.T) {
	env := newTestEnv(t, Deps{})
	form := url.Values{"return": {"/?q=noah"}}
	req := httptest.NewRequest(http.MethodPost, "/dashboard/refresh", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := env.do(req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?q=noah", rr.Header().Get("Location"))
}

func TestRefreshJSON(t *testing.T) {
	env := newTestEnv(t, Deps{})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/refresh", nil)
	req.Header.Set("Accept", "application/json")
	rr := env.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp refreshResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.LastUpdated.Equal(fixedNow))
	assert.False(t, resp.Skipped)
}

func TestSafeReturn(t *testing.T) {
	assert.Equal(t, "/", safeReturn(""))
	assert.Equal(t, "/", safeReturn("https://evil.example"))
	assert.Equal(t, "/", safeReturn("//evil.example"))
	assert.Equal(t, "/", safeReturn(`/\evil.example`))
	assert.Equal(t, "/?apartments=occupied", safeReturn("/?apartments=occupied"))
}

func TestRecordsAPI(t *testing.T) {
	owners := []property.Owner{{ID: "1", Name: "Marko"}, {ID: "2", Name: "Jelena"}, {ID: "3", Name: "Ivan"}}
	env := newTestEnv(t, Deps{Records: stubRecords{owners: owners}})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/records/owners?limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Docs      []property.Owner `json:"docs"`
		TotalDocs int              `json:"totalDocs"`
		Limit     int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page.Docs, 2)
	assert.Equal(t, 2, page.TotalDocs)
	assert.Equal(t, 2, page.Limit)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/records/owners", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"limit":10`)
}

func TestRecordsAPIErrors(t *testing.T) {
	env := newTestEnv(t, Deps{Records: stubRecords{}})
	cases := map[string]int{
		"/api/records/bookings":         http.StatusNotFound,
		"/api/records/owners?limit=0":   http.StatusBadRequest,
		"/api/records/owners?limit=101": http.StatusBadRequest,
		"/api/records/owners?limit=ten": http.StatusBadRequest,
	}
	for target, status := range cases {
		rr := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, status, rr.Code, target)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"), target)
	}

	failing := newTestEnv(t, Deps{Records: stubRecords{err: errors.New("cms offline")}})
	rr := failing.do(httptest.NewRequest(http.MethodGet, "/api/records/reservations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "cms offline")
}

func TestChartRendererFailure(t *testing.T) {
	failing := ChartFunc(func(int, int, []string, []float64, []float64, svg.AreaOpts) (template.HTML, error) {
		return "", errors.New("boom")
	})
	env := newTestEnv(t, Deps{Chart: failing})
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
