package ttlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(0)
	s.now = clock.Now
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStore_SetGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || value != "1" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}

	if err := s.Set(ctx, "a", "2", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if value, _, _ := s.Get(ctx, "a"); value != "2" {
		t.Errorf("expected overwrite, got %q", value)
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("missing key reported present")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a", "1", time.Minute)
	_ = s.Set(ctx, "b", "2", time.Hour)

	clock.Advance(time.Minute)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("entry should expire exactly at its TTL")
	}
	if _, ok, _ := s.Get(ctx, "b"); !ok {
		t.Error("long-lived entry should remain")
	}

	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_Take(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a", "1", time.Minute)
	value, ok, err := s.Take(ctx, "a")
	if err != nil || !ok || value != "1" {
		t.Fatalf("Take = %q, %v, %v", value, ok, err)
	}
	if _, ok, _ := s.Take(ctx, "a"); ok {
		t.Error("second Take should find nothing")
	}

	_ = s.Set(ctx, "b", "2", time.Second)
	clock.Advance(2 * time.Second)
	if _, ok, _ := s.Take(ctx, "b"); ok {
		t.Error("Take returned an expired entry")
	}
	if s.Len() != 0 {
		t.Error("expired entry should be removed by Take")
	}
}

func TestMemoryStore_ConcurrentTake(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "code", "123456", time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.Take(ctx, "code"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one Take to win, got %d", winners)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a", "1", time.Minute)
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("deleted key still present")
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestMemoryStore_Close(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()
	_ = s.Set(ctx, "a", "1", time.Minute)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := s.Set(ctx, "a", "1", time.Minute); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close = %v, want ErrClosed", err)
	}
	if _, _, err := s.Get(ctx, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	s := NewMemoryStore(5 * time.Millisecond)
	defer s.Close()

	_ = s.Set(context.Background(), "a", "1", time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
