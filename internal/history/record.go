package history

import (
	"time"

	"voicecall-engine/internal/signaling"
)

// BuildInput captures everything needed to derive a terminal record.
type BuildInput struct {
	CallID         string
	ConversationID string
	RaisedBy       string
	IsOutgoing     bool
	ConnectedAt    *time.Time

	// Category is the signaling-level termination; empty falls back to FAILED.
	Category signaling.Category

	// UserInitiated is true when the local user ended/declined the call.
	UserInitiated bool
}

// BuildRecord computes duration and delivery status for a terminal record.
//
// Duration is 0 for calls that never connected, else the whole-millisecond
// distance from ConnectedAt to now (absolute, so clock skew can never produce
// a negative duration).
//
// A record is READ when the local user raised the call, when the call ended
// normally, or when the local user declined it; anything else (missed,
// remote-canceled, failed) stays DELIVERED so the UI surfaces it.
func BuildRecord(in BuildInput, now time.Time) Record {
	category := in.Category
	if category == "" {
		category = signaling.CategoryFailed
	}

	var durationMs int64
	if in.ConnectedAt != nil {
		d := now.Sub(*in.ConnectedAt)
		if d < 0 {
			d = -d
		}
		durationMs = d.Milliseconds()
	}

	read := in.IsOutgoing ||
		category == signaling.CategoryEnd ||
		(category == signaling.CategoryDecline && in.UserInitiated)

	status := StatusDelivered
	if read {
		status = StatusRead
	}

	return Record{
		CallID:         in.CallID,
		ConversationID: in.ConversationID,
		RaisedBy:       in.RaisedBy,
		Category:       category,
		DurationMs:     durationMs,
		Status:         status,
		CreatedAt:      now,
	}
}
