package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/kotor-apartments/stayboard/internal/auth"
	"github.com/kotor-apartments/stayboard/internal/shared"
	"github.com/kotor-apartments/stayboard/internal/view"
	_ "github.com/kotor-apartments/stayboard/testing"
)

type stubRepo struct {
	user     *auth.User
	touched  time.Time
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, auth.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, auth.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	s.touched = at
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = map[string]int64{}
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type authEnv struct {
	router   chi.Router
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

func newAuthEnv(t *testing.T, repo auth.Repository) *authEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	handler := auth.NewHandler(nil, auth.NewService(repo), templates, sessionManager, csrfManager)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionManager.Load(r.Context(), r)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(r.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r.WithContext(ctx))
			if err := sessionManager.Commit(ctx, w, sess); err != nil {
				t.Fatalf("commit session: %v", err)
			}
			for key, values := range rec.Header() {
				for _, v := range values {
					w.Header().Add(key, v)
				}
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	router.Route("/auth", handler.MountRoutes)
	return &authEnv{router: router, sessions: sessionManager, csrf: csrfManager}
}

func (e *authEnv) do(req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func postLogin(e *authEnv, cookie *http.Cookie, email, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return e.do(req)
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := auth.HashPassword("correctpass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Email: "mila@stayboard.local", Name: "Mila", PasswordHash: hashed, IsActive: true}
}

func TestLoginPage(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{})

	res := env.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, `name="csrf_token"`) {
		t.Fatalf("expected login form with csrf field in body")
	}
	sessionCookie(t, res, env.sessions.CookieName())
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{user: activeUser(t)})

	res := postLogin(env, nil, "mila@stayboard.local", "wrongpass")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "Invalid email or password") {
		t.Fatalf("expected error message in response")
	}
	if strings.Contains(body, "wrongpass") {
		t.Fatalf("password echoed back into the form")
	}
}

func TestLoginValidationMessages(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{})

	res := postLogin(env, nil, "not-an-email", "short")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	body := res.Body.String()
	for _, msg := range []string{"Enter a valid email address", "Password must be at least 8 characters"} {
		if !strings.Contains(body, msg) {
			t.Fatalf("expected %q in response", msg)
		}
	}
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	env := newAuthEnv(t, repo)

	first := env.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	anonymous := sessionCookie(t, first, env.sessions.CookieName())

	res := postLogin(env, anonymous, "MILA@stayboard.local", "correctpass")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	renewed := sessionCookie(t, res, env.sessions.CookieName())
	if renewed.Value == anonymous.Value {
		t.Fatalf("session id was not rotated on login")
	}
	if repo.touched.IsZero() {
		t.Fatalf("last login not recorded")
	}
	if repo.sessions[renewed.Value] != 7 {
		t.Fatalf("session metadata not registered for renewed id")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(renewed)
	sess, err := env.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load renewed session: %v", err)
	}
	if sess.User() != "7" {
		t.Fatalf("expected user 7 in session, got %q", sess.User())
	}

	stale := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	stale.AddCookie(anonymous)
	old, err := env.sessions.Load(context.Background(), stale)
	if err != nil {
		t.Fatalf("load stale session: %v", err)
	}
	if old.User() != "" {
		t.Fatalf("pre-login session id still authenticates")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	env := newAuthEnv(t, repo)

	login := postLogin(env, nil, "mila@stayboard.local", "correctpass")
	cookie := sessionCookie(t, login, env.sessions.CookieName())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	res := env.do(req)
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/auth/login" {
		t.Fatalf("expected redirect to login, got %q", loc)
	}
	if _, ok := repo.sessions[cookie.Value]; ok {
		t.Fatalf("session metadata not removed")
	}
	cleared := sessionCookie(t, res, env.sessions.CookieName())
	if cleared.MaxAge >= 0 {
		t.Fatalf("expected cookie to be cleared, got MaxAge %d", cleared.MaxAge)
	}
}

func TestServiceViewer(t *testing.T) {
	user := activeUser(t)
	svc := auth.NewService(&stubRepo{user: user})

	viewer, err := svc.Viewer(context.Background(), "")
	if err != nil || viewer != nil {
		t.Fatalf("expected anonymous viewer, got %v, %v", viewer, err)
	}
	viewer, err = svc.Viewer(context.Background(), "7")
	if err != nil {
		t.Fatalf("viewer: %v", err)
	}
	if viewer.DisplayName() != "Mila" || viewer.Email != "mila@stayboard.local" {
		t.Fatalf("unexpected viewer %+v", viewer)
	}
	if _, err := svc.Viewer(context.Background(), "abc"); err == nil {
		t.Fatalf("expected error for malformed user id")
	}
	user.IsActive = false
	if _, err := svc.Viewer(context.Background(), "7"); err == nil {
		t.Fatalf("expected error for inactive user")
	}
}
