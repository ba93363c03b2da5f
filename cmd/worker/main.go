package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kotor-apartments/stayboard/internal/app"
	jobmetrics "github.com/kotor-apartments/stayboard/internal/jobs"
	"github.com/kotor-apartments/stayboard/internal/observability"
	"github.com/kotor-apartments/stayboard/internal/platform/cache"
	"github.com/kotor-apartments/stayboard/internal/platform/db"
	"github.com/kotor-apartments/stayboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{AppName: "stayboard-worker"})
	if err != nil {
		if cfg.RecordSource == app.RecordSourcePostgres {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("postgres unavailable", slog.Any("error", err))
	}
	if pool != nil {
		defer pool.Close()
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

	records, err := app.NewRecordSource(cfg, pool)
	if err != nil {
		logger.Error("init record source", slog.Any("error", err))
		os.Exit(1)
	}
	obs := observability.NewMetrics()
	snapshots := app.NewSnapshotService(cfg, records, redisClient, logger, obs.Registerer())
	metrics := jobmetrics.NewMetrics(obs.Registerer())

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           obs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	warmupJob := jobs.NewSnapshotWarmupJob(snapshots, logger, metrics)
	invalidateJob := jobs.NewCacheInvalidateJob(snapshots, logger, metrics)

	warmupTask, err := jobs.NewSnapshotWarmupTask("schedule")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.WarmupInterval > 0 {
		cron = append(cron, jobs.CronRegistration{
			Spec:    "@every " + cfg.WarmupInterval.String(),
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(cfg.WarmupInterval)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskCacheInvalidate, Handler: invalidateJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("record_source", cfg.RecordSource), slog.Duration("warmup_interval", cfg.WarmupInterval))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
