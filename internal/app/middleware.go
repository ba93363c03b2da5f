package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/kotor-apartments/stayboard/internal/observability"
	"github.com/kotor-apartments/stayboard/internal/platform/httpx"
	"github.com/kotor-apartments/stayboard/internal/shared"
)

const (
	defaultRequestTimeout    = 30 * time.Second
	defaultRequestsPerMinute = 120
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack installs the application middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		cfg.sessions,
		middleware.Recoverer,
		middleware.Timeout(cfg.requestTimeout()),
		cfg.secureHeaders(),
		middleware.Compress(5),
		httprate.Limit(cfg.requestsPerMinute(), time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		cfg.csrf,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// sessions attaches the visitor session. When the store is unreachable the
// request proceeds without one: pages render for an anonymous viewer and
// unsafe methods are refused by csrf.
func (cfg MiddlewareConfig) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, err := cfg.SessionManager.Load(ctx, r)
		if err != nil {
			cfg.Logger.Warn("session store unavailable", slog.Any("error", err), slog.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		ctx = shared.ContextWithSession(ctx, sess)

		sw := &sessionWriter{
			ResponseWriter: w,
			ctx:            ctx,
			sess:           sess,
			manager:        cfg.SessionManager,
			logger:         cfg.Logger,
		}
		next.ServeHTTP(sw, r.WithContext(ctx))
		sw.flush()
	})
}

// sessionWriter commits the session right before the status line goes out so
// Set-Cookie is part of the response headers.
type sessionWriter struct {
	http.ResponseWriter
	ctx       context.Context
	sess      *shared.Session
	manager   *shared.SessionManager
	logger    *slog.Logger
	committed bool
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.sess); err != nil {
		w.logger.Error("commit session", slog.Any("error", err))
	}
}

func (w *sessionWriter) WriteHeader(statusCode int) {
	w.commit()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// flush covers handlers that returned without writing anything.
func (w *sessionWriter) flush() {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
}

func (cfg MiddlewareConfig) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			forbidden(w, r, "session unavailable")
			return
		}
		token := r.Header.Get(shared.CSRFHeader)
		if token == "" {
			token = r.PostFormValue(shared.CSRFFormField)
		}
		if err := cfg.CSRFManager.VerifyToken(r.Context(), sess, token); err != nil {
			cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			forbidden(w, r, "invalid or missing csrf token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), detail)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (cfg MiddlewareConfig) secureHeaders() func(http.Handler) http.Handler {
	production := cfg.Config != nil && cfg.Config.IsProduction()
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'",
		SSLRedirect:           production,
		STSSeconds:            stsSeconds(production),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

func (cfg MiddlewareConfig) requestTimeout() time.Duration {
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		return cfg.Config.AppRequestTimeout
	}
	return defaultRequestTimeout
}

func (cfg MiddlewareConfig) requestsPerMinute() int {
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		return cfg.Config.RateLimitPerMinute
	}
	return defaultRequestsPerMinute
}
