package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// entry wraps a cached payload with the time it was stored.
type entry struct {
	data     []byte
	storedAt time.Time
}

// Memory is an in-memory W-TinyLFU cache backed by otter. An entry is valid
// iff now - storedAt < ttl, checked lazily on Get.
type Memory struct {
	cache *otter.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

var _ Cache = (*Memory)(nil)

// Option configures a Memory cache.
type Option func(*Memory)

// WithClock overrides the time source used for storedAt stamps and validity checks.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an in-memory cache holding at most maxSize entries, each
// valid for ttl after it was written.
func NewMemory(maxSize int, ttl time.Duration, opts ...Option) (*Memory, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("create cache: ttl must be positive, got %s", ttl)
	}
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	m := &Memory{cache: c, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// TTL returns the fixed entry lifetime.
func (m *Memory) TTL() time.Duration { return m.ttl }

// Get returns a copy of the payload for key if present and not expired.
// Stale entries are invalidated.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		m.cache.Invalidate(key)
		return nil, false
	}
	return bytes.Clone(e.data), true
}

// Set stores a copy of val, replacing any existing entry.
func (m *Memory) Set(_ context.Context, key string, val []byte) {
	m.cache.Set(key, entry{
		data:     bytes.Clone(val),
		storedAt: m.now(),
	})
}

// Purge removes all values from the cache.
func (m *Memory) Purge(_ context.Context) {
	m.cache.InvalidateAll()
}

// Len returns the approximate number of stored entries, expired ones included
// until they are looked up or evicted.
func (m *Memory) Len() int {
	return m.cache.EstimatedSize()
}
