package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kotor-apartments/stayboard/internal/app"
	"github.com/kotor-apartments/stayboard/internal/auth"
	"github.com/kotor-apartments/stayboard/internal/dashboard"
	dashboardhttp "github.com/kotor-apartments/stayboard/internal/dashboard/http"
	"github.com/kotor-apartments/stayboard/internal/observability"
	"github.com/kotor-apartments/stayboard/internal/platform/cache"
	"github.com/kotor-apartments/stayboard/internal/platform/db"
	"github.com/kotor-apartments/stayboard/internal/shared"
	"github.com/kotor-apartments/stayboard/internal/view"
	"github.com/kotor-apartments/stayboard/jobs"
	"github.com/kotor-apartments/stayboard/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{AppName: "stayboard"})
	if err != nil {
		if cfg.RecordSource == app.RecordSourcePostgres {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("postgres unavailable, sign-in disabled", slog.Any("error", err))
	} else {
		defer dbpool.Close()
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	source, err := app.NewRecordSource(cfg, dbpool)
	if err != nil {
		logger.Error("init record source", slog.Any("error", err))
		os.Exit(1)
	}
	snapshots := app.NewSnapshotService(cfg, source, redisClient, logger, metrics.Registerer())
	if err := snapshots.ListenForInvalidation(ctx); err != nil {
		logger.Warn("subscribe cache invalidation", slog.Any("error", err))
	}
	refresher := dashboard.NewRefresher(cfg.RefreshDelay, nil)

	sessionManager := shared.NewSessionManager(redisClient, "stayboard_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		authHandler *auth.Handler
		viewers     dashboardhttp.ViewerResolver
	)
	if dbpool != nil {
		authService := auth.NewService(auth.NewRepository(dbpool))
		authHandler = auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)
		viewers = authService
	}

	reportClient := report.NewClient(cfg.GotenbergURL, nil)
	reportHandler := report.NewHandler(reportClient, logger)

	dashboardHandler := dashboardhttp.NewHandler(dashboardhttp.Deps{
		Logger:    logger,
		Service:   snapshots,
		Refresher: refresher,
		Viewers:   viewers,
		Templates: templates,
		PDF:       reportClient,
		Records:   source,
		CSRF:      csrfManager,
		Location:  cfg.Location(),
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("record_source", cfg.RecordSource))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
