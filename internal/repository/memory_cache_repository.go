package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
)

// memoryCacheSweepInterval bounds how often Set scans for expired entries.
const memoryCacheSweepInterval = time.Minute

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is an in-process stand-in for the Redis cache with
// the same JSON round-trip and TTL semantics.
type MemoryCacheRepository struct {
	mu      sync.Mutex
	entries   map[string]memoryCacheEntry
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryCacheRepository constructs an empty cache. A nil clock uses
// time.Now.
func NewMemoryCacheRepository(now func() time.Time) *MemoryCacheRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryCacheRepository{entries: make(map[string]memoryCacheEntry), now: now}
}

// Get unmarshals a live entry into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok && !r.now().Before(entry.expiresAt) {
		delete(r.entries, key)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value until ttl elapses. Entries that expired without being
// read again are dropped here, at most once per sweep interval.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if !now.Before(r.nextSweep) {
		r.sweepLocked(now)
	}
	r.entries[key] = memoryCacheEntry{payload: payload, expiresAt: now.Add(ttl)}
	return nil
}

// Len reports how many entries are held, expired or not.
func (r *MemoryCacheRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *MemoryCacheRepository) sweepLocked(now time.Time) {
	for key, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, key)
		}
	}
	r.nextSweep = now.Add(memoryCacheSweepInterval)
}
