package history

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and early development.
type MemoryRepo struct {
	mu      sync.Mutex
	Records []Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) InsertTerminalRecord(ctx context.Context, rec Record) error {
	if rec.CallID == "" || rec.ConversationID == "" {
		return errors.New("history: call_id and conversation_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// First terminal record per call wins, matching the postgres repo's
	// ON CONFLICT DO NOTHING.
	for _, existing := range r.Records {
		if existing.CallID == rec.CallID {
			return nil
		}
	}
	r.Records = append(r.Records, rec)
	return nil
}

func (r *MemoryRepo) ListRecords(ctx context.Context, conversationID string, from, to time.Time) ([]Record, error) {
	if conversationID == "" {
		return nil, errors.New("history: conversation_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.Records {
		if rec.ConversationID != conversationID {
			continue
		}
		if !rec.CreatedAt.IsZero() {
			if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRepo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	start := len(r.Records) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Record, 0, len(r.Records)-start)
	for i := len(r.Records) - 1; i >= start; i-- {
		out = append(out, r.Records[i])
	}
	return out, nil
}
