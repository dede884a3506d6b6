// Package cache provides string caches for fetched timetable markup.
package cache

import (
	"context"
	"time"
)

// Cache stores string values with a time-to-live
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}
