package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryThrottle is an in-process Throttle for tests and single-process
// deployments. Entries expire lazily on access.
type MemoryThrottle struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count   int64
	expires time.Time
}

// NewMemoryThrottle creates an empty in-memory throttle.
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{entries: map[string]*memoryEntry{}, now: time.Now}
}

func (t *MemoryThrottle) live(key string) *memoryEntry {
	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	if t.now().After(e.expires) {
		delete(t.entries, key)
		return nil
	}
	return e
}

func (t *MemoryThrottle) IncrementAndGet(_ context.Context, key string, ttl time.Duration) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.live(key)
	if e == nil {
		e = &memoryEntry{expires: t.now().Add(ttl)}
		t.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (t *MemoryThrottle) Get(_ context.Context, key string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e := t.live(key); e != nil {
		return e.count, nil
	}
	return 0, nil
}

func (t *MemoryThrottle) RetryAfter(_ context.Context, key string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e := t.live(key); e != nil {
		return e.expires.Sub(t.now()), nil
	}
	return 0, nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
	return nil
}
