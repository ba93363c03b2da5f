package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kotor-apartments/stayboard/internal/property"
)

// Source is the bulk read boundary for the three dashboard collections.
type Source interface {
	ListApartments(ctx context.Context, limit int) ([]property.Apartment, error)
	ListReservations(ctx context.Context, limit int) ([]property.Reservation, error)
	ListCleaningJobs(ctx context.Context, limit int) ([]property.CleaningJob, error)
}

// Limits caps each collection fetch.
type Limits struct {
	Apartments   int
	Reservations int
	CleaningJobs int
}

// DefaultLimits returns the fetch caps used when none are configured.
func DefaultLimits() Limits {
	return Limits{Apartments: 50, Reservations: 20, CleaningJobs: 5}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.Apartments <= 0 {
		l.Apartments = def.Apartments
	}
	if l.Reservations <= 0 {
		l.Reservations = def.Reservations
	}
	if l.CleaningJobs <= 0 {
		l.CleaningJobs = def.CleaningJobs
	}
	return l
}

// Snapshot is an immutable copy of the three collections taken once per render.
type Snapshot struct {
	Apartments   []property.Apartment   `json:"apartments"`
	Reservations []property.Reservation `json:"reservations"`
	CleaningJobs []property.CleaningJob `json:"cleaningJobs"`
	FetchedAt    time.Time              `json:"fetchedAt"`
	Degraded     bool                   `json:"degraded"`
}

// loadTimeout bounds a shared snapshot load, independent of the callers
// waiting on it.
const loadTimeout = 30 * time.Second

// ErrSourceMissing is returned by Load when no source is configured.
var ErrSourceMissing = errors.New("dashboard: record source not configured")

// Service loads snapshots from a Source, optionally through a Cache.
type Service struct {
	source  Source
	cache   *Cache
	limits  Limits
	logger  *slog.Logger
	metrics *Metrics
	group   singleflight.Group
	now     func() time.Time
}

// NewService wires a Source with an optional Cache.
func NewService(source Source, cache *Cache, limits Limits, logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:  source,
		cache:   cache,
		limits:  limits.withDefaults(),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Limits reports the effective fetch caps.
func (s *Service) Limits() Limits { return s.limits }

// Snapshot returns the current collections. It never fails: any load error is
// logged, counted and replaced by empty collections. Concurrent callers share
// one load, which outlives any single caller's cancellation.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	ch := s.group.DoChan(snapshotKey(s.limits), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.cachedLoad(loadCtx)
	})
	var (
		snap Snapshot
		err  error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		err = res.Err
		if err == nil {
			snap = res.Val.(Snapshot)
		}
	}
	if err != nil {
		s.logger.Warn("dashboard snapshot degraded", slog.Any("error", err))
		return emptySnapshot(s.now())
	}
	return snap
}

// Load fetches a fresh snapshot directly from the source, bypassing the cache.
func (s *Service) Load(ctx context.Context) (Snapshot, error) {
	if s.source == nil {
		return Snapshot{}, ErrSourceMissing
	}
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.source.ListApartments(gctx, s.limits.Apartments)
		if err != nil {
			s.metrics.fetchFailed("apartments")
			return fmt.Errorf("list apartments: %w", err)
		}
		snap.Apartments = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ListReservations(gctx, s.limits.Reservations)
		if err != nil {
			s.metrics.fetchFailed("reservations")
			return fmt.Errorf("list reservations: %w", err)
		}
		snap.Reservations = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ListCleaningJobs(gctx, s.limits.CleaningJobs)
		if err != nil {
			s.metrics.fetchFailed("cleaning_jobs")
			return fmt.Errorf("list cleaning jobs: %w", err)
		}
		snap.CleaningJobs = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	snap.FetchedAt = s.now()
	return normalise(snap), nil
}

// Warm loads a fresh snapshot and stores it in the cache.
func (s *Service) Warm(ctx context.Context) (Snapshot, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if s.cache == nil {
		return snap, nil
	}
	key, err := s.cache.BuildKey(ctx, snapshotKey(s.limits))
	if err != nil {
		return snap, fmt.Errorf("build snapshot key: %w", err)
	}
	if err := s.cache.Store(ctx, key, snap); err != nil {
		return snap, fmt.Errorf("store snapshot: %w", err)
	}
	return snap, nil
}

// ListenForInvalidation follows cache version bumps published by other instances.
func (s *Service) ListenForInvalidation(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, "")
}

// Invalidate drops cached snapshots across instances.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) cachedLoad(ctx context.Context) (Snapshot, error) {
	if s.cache == nil {
		return s.Load(ctx)
	}
	key, err := s.cache.BuildKey(ctx, snapshotKey(s.limits))
	if err != nil {
		s.cacheUnavailable(err)
		return s.Load(ctx)
	}
	var (
		snap    Snapshot
		loadErr error
	)
	hit, err := s.cache.FetchJSON(ctx, key, &snap, func(ctx context.Context) (any, error) {
		fresh, err := s.Load(ctx)
		loadErr = err
		return fresh, err
	})
	if loadErr != nil {
		return Snapshot{}, loadErr
	}
	if err != nil {
		s.cacheUnavailable(err)
		return s.Load(ctx)
	}
	if hit {
		s.metrics.cacheResult("hit")
	} else {
		s.metrics.cacheResult("miss")
	}
	return normalise(snap), nil
}

func (s *Service) cacheUnavailable(err error) {
	s.metrics.cacheResult("error")
	s.logger.Warn("dashboard snapshot cache unavailable", slog.Any("error", err))
}

func emptySnapshot(now time.Time) Snapshot {
	return normalise(Snapshot{FetchedAt: now, Degraded: true})
}

func normalise(snap Snapshot) Snapshot {
	if snap.Apartments == nil {
		snap.Apartments = []property.Apartment{}
	}
	if snap.Reservations == nil {
		snap.Reservations = []property.Reservation{}
	}
	if snap.CleaningJobs == nil {
		snap.CleaningJobs = []property.CleaningJob{}
	}
	return snap
}
