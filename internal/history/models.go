// Package history is the engine's only write path into conversation history:
// one terminal record per call, describing how and why it ended.
package history

import (
	"context"
	"time"

	"voicecall-engine/internal/signaling"
)

// DeliveryStatus mirrors the messenger's message status for call records.
type DeliveryStatus string

const (
	// StatusRead marks records the local user does not need to be alerted
	// about: calls they raised, normal ends, and declines they chose.
	StatusRead DeliveryStatus = "READ"

	// StatusDelivered marks records that should surface as unseen (e.g. a
	// missed call).
	StatusDelivered DeliveryStatus = "DELIVERED"
)

// Record is the persisted summary of how a call ended.
type Record struct {
	CallID         string             `json:"call_id" db:"call_id"`
	ConversationID string             `json:"conversation_id" db:"conversation_id"`
	RaisedBy       string             `json:"raised_by" db:"raised_by"`
	Category       signaling.Category `json:"category" db:"category"`
	DurationMs     int64              `json:"duration_ms" db:"duration_ms"`
	Status         DeliveryStatus     `json:"status" db:"status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// Recorder persists terminal records.
type Recorder interface {
	InsertTerminalRecord(ctx context.Context, rec Record) error
}

// Repository extends Recorder with the reads the reporting module needs.
type Repository interface {
	Recorder
	ListRecords(ctx context.Context, conversationID string, from, to time.Time) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
