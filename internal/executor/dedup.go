package executor

import (
	"sync"
	"time"
)

// Dedup remembers message ids for a time-to-live window so that a redelivered
// message is not executed twice. It is safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time // messageID -> first seen
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats a message id as a duplicate if it was
// seen within ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// IsDuplicate returns true if messageID was seen within the TTL window.
// Otherwise the id is recorded and false is returned.
func (d *Dedup) IsDuplicate(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if first, ok := d.seen[messageID]; ok && now.Sub(first) < d.ttl {
		return true
	}
	d.seen[messageID] = now
	return false
}

// Cleanup removes expired entries. Call it periodically to bound memory.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}

// Len returns the number of tracked ids.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
