// Package diagnostics records engine anomalies that must not interrupt the
// user: media failures, serialization problems, refused telephony reports.
package diagnostics

import "time"

// Event is an immutable, append-only diagnostics record.
//
// Invariants:
// - Events are never updated or deleted.
// - Reporting is best-effort; the call engine never blocks on diagnostics.
type Event struct {
	ID string `json:"id" db:"id"`

	// Action names the operation that failed, e.g. "sdp_construction".
	Action string `json:"action" db:"action"`

	// CallID correlates the event to a call when one is in flight.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// Detail is a short human-readable description for internal ops.
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
