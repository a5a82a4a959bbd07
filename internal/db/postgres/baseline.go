package postgres

import (
	"sync"
	"time"
)

// baselineTracker remembers the updated_at each comment had when it was last
// read for writing in one scope. Conditional writes consume the entry, so a
// second write without a fresh read is rejected rather than trusted.
type baselineTracker struct {
	seen map[string]time.Time
	mu   sync.Mutex
}

func newBaselineTracker() *baselineTracker {
	return &baselineTracker{seen: make(map[string]time.Time)}
}

// record stores (or overwrites) the baseline for id
func (b *baselineTracker) record(id string, updatedAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen[id] = updatedAt
}

// take removes and returns the baseline for id
func (b *baselineTracker) take(id string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts, ok := b.seen[id]
	if ok {
		delete(b.seen, id)
	}
	return ts, ok
}

func (b *baselineTracker) has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.seen[id]
	return ok
}

func (b *baselineTracker) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.seen)
}

func (b *baselineTracker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}
