package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

// Memory is an in-process LRU cache
type Memory struct {
	lru gcache.Cache
}

// NewMemory creates an LRU cache holding up to size entries
func NewMemory(size int) *Memory {
	return &Memory{lru: gcache.New(size).LRU().Build()}
}

// Get returns the cached value, if present and not expired
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, err := m.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

// Set stores value for ttl. A non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return m.lru.Set(key, value)
	}
	return m.lru.SetWithExpire(key, value, ttl)
}

// Close drops all entries
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
