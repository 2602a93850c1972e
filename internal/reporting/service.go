// Package reporting aggregates terminal call records into per-conversation
// summaries. It only reads the immutable history table.
package reporting

import (
	"context"
	"errors"

	"voicecall-engine/internal/history"
	"voicecall-engine/internal/signaling"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

type Service struct {
	repo   history.Repository
	selfID string
}

// NewService builds a reporting service. selfID classifies records into
// outgoing (raised by the local account) and incoming.
func NewService(repo history.Repository, selfID string) *Service {
	return &Service{repo: repo, selfID: selfID}
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.ConversationID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListRecords(ctx, req.ConversationID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{ConversationID: req.ConversationID}
	connected := 0
	for _, rec := range rows {
		out.TotalCalls++
		out.TotalDurationMs += rec.DurationMs
		if rec.RaisedBy == s.selfID {
			out.OutgoingCalls++
		} else {
			out.IncomingCalls++
		}
		if rec.DurationMs > 0 || rec.Category == signaling.CategoryEnd {
			connected++
		}
		switch rec.Category {
		case signaling.CategoryEnd:
			out.CompletedCalls++
		case signaling.CategoryCancel:
			out.MissedCalls++
		case signaling.CategoryDecline:
			out.DeclinedCalls++
		case signaling.CategoryBusy:
			out.BusyCalls++
		case signaling.CategoryFailed:
			out.FailedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationMs = out.TotalDurationMs / int64(out.TotalCalls)
		out.ConnectionRate = float64(connected) / float64(out.TotalCalls)
	}
	return out, nil
}

// RecentActivity returns the newest terminal records across all conversations.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]history.Record, error) {
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, limit)
}
