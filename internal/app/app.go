// Package app wires configuration to the stores, sources and jobs shared by
// the commands.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/marc-delays/tracker/internal/aggregate"
	"github.com/marc-delays/tracker/internal/cache"
	"github.com/marc-delays/tracker/internal/config"
	"github.com/marc-delays/tracker/internal/db"
	"github.com/marc-delays/tracker/internal/handlers"
	"github.com/marc-delays/tracker/internal/ingest"
	"github.com/marc-delays/tracker/internal/pgstore"
	"github.com/marc-delays/tracker/internal/publish"
	"github.com/marc-delays/tracker/internal/realtime/gtfsrt"
	"github.com/marc-delays/tracker/internal/realtime/tracker"
	"github.com/marc-delays/tracker/internal/timetable"
)

// Store is implemented by both the SQLite and the PostgreSQL store
type Store interface {
	ingest.Store
	aggregate.Store
	handlers.TrainRepository
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore connects to PostgreSQL when DATABASE_URL is set, SQLite otherwise,
// and ensures the schema exists
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	var store Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = pg
	} else {
		sqlite, err := db.Connect(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		store = sqlite
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// OpenMarkupCache returns a Redis cache when REDIS_ADDR is set and reachable,
// and an in-process LRU otherwise
func OpenMarkupCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			return redisCache
		}
		log.Printf("Warning: Redis unavailable, using in-memory markup cache: %v", err)
	}
	return cache.NewMemory(64)
}

// Lines returns the configured line catalogue
func Lines(cfg *config.Config) ([]config.Line, error) {
	if cfg.LinesFile == "" {
		return config.DefaultLines(), nil
	}
	return config.LoadLines(cfg.LinesFile)
}

// NewSource selects the live arrival source
func NewSource(cfg *config.Config, client *tracker.Client) (ingest.Source, error) {
	switch cfg.ArrivalSource {
	case "", "tracker":
		return client, nil
	case "gtfsrt":
		return gtfsrt.NewSource(cfg.GTFSTripUpdatesURL, cfg.Location()), nil
	default:
		return nil, fmt.Errorf("unknown ARRIVAL_SOURCE %q", cfg.ArrivalSource)
	}
}

// NewAggregateJob builds the daily job. Timetable markup is fetched through
// the tracker client and cached in markupCache.
func NewAggregateJob(cfg *config.Config, store Store, client *tracker.Client, markupCache cache.Cache, lines []config.Line) (*aggregate.Job, error) {
	publisher, err := publish.NewDir(cfg.PublishDir)
	if err != nil {
		return nil, err
	}

	return &aggregate.Job{
		Fetcher:       timetable.NewCachedFetcher(client, markupCache, cfg.MarkupCacheTTL),
		Lines:         lines,
		Store:         store,
		Publisher:     publisher,
		Capacity:      cfg.NumSamples,
		RetentionDays: cfg.RetentionDays,
		Location:      cfg.Location(),
	}, nil
}

// NextDailyRun returns the first time strictly after now at hour:00 in loc
func NextDailyRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Yesterday returns the service date before the one containing now, in loc
func Yesterday(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()-1, 0, 0, 0, 0, loc)
}
