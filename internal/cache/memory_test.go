package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eugener/newsgate/internal/testutil"
)

func TestMemory_GetSet(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Get non-existent.
	if _, ok := m.Get(ctx, "missing"); ok {
		t.Error("should not find missing key")
	}

	m.Set(ctx, "k1", []byte("v1"))
	val, ok := m.Get(ctx, "k1")
	if !ok {
		t.Fatal("should find k1")
	}
	if string(val) != "v1" {
		t.Errorf("value = %q, want %q", val, "v1")
	}

	// Overwrite.
	m.Set(ctx, "k1", []byte("v2"))
	val, _ = m.Get(ctx, "k1")
	if string(val) != "v2" {
		t.Errorf("value after overwrite = %q, want %q", val, "v2")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()
	clock := testutil.NewClock()
	m, err := NewMemory(100, 10*time.Minute, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	m.Set(ctx, "k", []byte("data"))

	clock.Advance(10*time.Minute - time.Nanosecond)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be valid just before ttl")
	}

	// Valid iff now - storedAt < ttl, so exactly ttl is expired.
	clock.Advance(time.Nanosecond)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("entry should be expired at ttl")
	}

	// Re-set after expiry starts a fresh window.
	m.Set(ctx, "k", []byte("fresh"))
	val, ok := m.Get(ctx, "k")
	if !ok || string(val) != "fresh" {
		t.Errorf("Get after re-set = %q, %v; want fresh, true", val, ok)
	}
}

func TestMemory_Purge(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	m.Set(ctx, "b", []byte("2"))

	m.Purge(ctx)

	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("purge should remove all keys")
	}
	if _, ok := m.Get(ctx, "b"); ok {
		t.Error("purge should remove all keys")
	}

	// Purge on an empty cache is a no-op.
	m.Purge(ctx)
}

func TestMemory_CopySemantics(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	in := []byte("original")
	m.Set(ctx, "k", in)
	in[0] = 'X'

	out, _ := m.Get(ctx, "k")
	if string(out) != "original" {
		t.Errorf("stored value mutated through input slice: %q", out)
	}
	out[0] = 'Y'

	again, _ := m.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemory_InvalidTTL(t *testing.T) {
	t.Parallel()
	if _, err := NewMemory(100, 0); err == nil {
		t.Error("zero ttl should be rejected")
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(1000, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				key := fmt.Sprintf("k%d", j%20)
				m.Set(ctx, key, []byte(fmt.Sprintf("w%d", i)))
				m.Get(ctx, key)
				if j%50 == 0 {
					m.Purge(ctx)
				}
			}
		}()
	}
	wg.Wait()

	m.Set(ctx, "final", []byte("ok"))
	if v, ok := m.Get(ctx, "final"); !ok || string(v) != "ok" {
		t.Errorf("Get after concurrent use = %q, %v", v, ok)
	}
}
