package diagnostics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for diagnostics events.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var ErrInvalidEvent = errors.New("diagnostics: invalid event")

// Service records internal error events.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("diagnostics: repository not configured")
	}
	if e.Action == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// ReportError records a failed operation. Best-effort: the returned error is
// for tests; production callers may ignore it.
func (s *Service) ReportError(ctx context.Context, action, callID, detail string) error {
	return s.Append(ctx, Event{Action: action, CallID: callID, Detail: detail})
}
