package signaling

import (
	"context"
	"sync"
	"time"
)

// Deduper claims inbound message ids so redelivered messages are processed once.
type Deduper interface {
	// Claim returns true if id was not seen before within the dedup window.
	Claim(ctx context.Context, id string) (bool, error)
}

// NopDeduper accepts everything. Used when no dedup backend is configured.
type NopDeduper struct{}

func (NopDeduper) Claim(ctx context.Context, id string) (bool, error) { return true, nil }

// MemoryDeduper is an in-process Deduper for tests and single-instance runs.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, seen: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDeduper) Claim(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	// Opportunistic expiry; the map stays small at call-signaling rates.
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return true, nil
}
