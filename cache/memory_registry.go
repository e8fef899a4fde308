package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is a process-local PlayRegistry. Entries expire lazily on
// Claim and are swept periodically so the map does not grow without bound.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryRegistry returns a registry holding claims for ttl. When sweepEvery
// is positive a background goroutine drops expired entries; call Close to stop it.
func NewMemoryRegistry(ttl, sweepEvery time.Duration) *MemoryRegistry {
	r := &MemoryRegistry{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go r.janitor(sweepEvery)
	}
	return r
}

// SetClock replaces the time source. Tests use it to jump past the window.
func (r *MemoryRegistry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

func (r *MemoryRegistry) Claim(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if exp, ok := r.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	r.entries[key] = now.Add(r.ttl)
	return true, nil
}

// Len returns the number of tracked entries, expired ones included until swept.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (r *MemoryRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

func (r *MemoryRegistry) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stop:
			return
		}
	}
}

// Close stops the janitor. Safe to call more than once.
func (r *MemoryRegistry) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}
