package timetable

import (
	"context"
	"fmt"
	"log"
	"time"
)

// MarkupCache stores fetched timetable markup
type MarkupCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedFetcher serves timetable markup from a cache before hitting the network.
// Timetables change per service date, so the date is part of the key.
type CachedFetcher struct {
	next  MarkupFetcher
	cache MarkupCache
	ttl   time.Duration
}

// NewCachedFetcher wraps next with cache
func NewCachedFetcher(next MarkupFetcher, cache MarkupCache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl}
}

// FetchTimetable implements MarkupFetcher
func (f *CachedFetcher) FetchTimetable(ctx context.Context, line string, direction Direction, serviceDate time.Time) (string, error) {
	key := fmt.Sprintf("timetable:%s:%d:%s", line, direction, serviceDate.Format("2006-01-02"))

	if markup, ok, err := f.cache.Get(ctx, key); err != nil {
		log.Printf("Timetable: cache read failed for %s: %v", key, err)
	} else if ok {
		return markup, nil
	}

	markup, err := f.next.FetchTimetable(ctx, line, direction, serviceDate)
	if err != nil {
		return "", err
	}

	if err := f.cache.Set(ctx, key, markup, f.ttl); err != nil {
		log.Printf("Timetable: cache write failed for %s: %v", key, err)
	}
	return markup, nil
}
