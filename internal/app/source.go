package app

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/kotor-apartments/stayboard/internal/dashboard"
	"github.com/kotor-apartments/stayboard/internal/property"
	"github.com/kotor-apartments/stayboard/internal/property/cms"
)

// ErrPoolRequired is returned when the postgres record source has no pool.
var ErrPoolRequired = errors.New("app: postgres record source needs a database pool")

// NewRecordSource builds the configured record reader.
func NewRecordSource(cfg *Config, pool *pgxpool.Pool) (property.Lister, error) {
	if cfg.RecordSource == RecordSourcePostgres {
		if pool == nil {
			return nil, ErrPoolRequired
		}
		return property.NewRepository(pool, cfg.RecordsPopulate), nil
	}
	return cms.NewClient(cms.Config{
		BaseURL:  cfg.CMSURL,
		APIKey:   cfg.CMSAPIKey,
		Populate: cfg.RecordsPopulate,
	})
}

// NewSnapshotService wires the snapshot loader with its optional redis cache.
func NewSnapshotService(cfg *Config, source dashboard.Source, redisClient *redis.Client, logger *slog.Logger, registerer prometheus.Registerer) *dashboard.Service {
	var cache *dashboard.Cache
	if redisClient != nil && cfg.SnapshotCacheTTL > 0 {
		cache = dashboard.NewCache(redisClient, cfg.SnapshotCacheTTL)
	}
	limits := dashboard.Limits{
		Apartments:   cfg.LimitApartments,
		Reservations: cfg.LimitReservations,
		CleaningJobs: cfg.LimitCleaningJobs,
	}
	return dashboard.NewService(source, cache, limits, logger, dashboard.NewMetrics(registerer))
}
