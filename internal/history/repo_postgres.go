package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"voicecall-engine/internal/signaling"
)

// PostgresRepo persists terminal records.
//
// Schema:
//
//	CREATE TABLE call_records (
//	    call_id         TEXT PRIMARY KEY,
//	    conversation_id TEXT NOT NULL,
//	    raised_by       TEXT NOT NULL,
//	    category        TEXT NOT NULL,
//	    duration_ms     BIGINT NOT NULL DEFAULT 0,
//	    status          TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX call_records_conversation_idx ON call_records (conversation_id, created_at);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) InsertTerminalRecord(ctx context.Context, rec Record) error {
	if rec.CallID == "" || rec.ConversationID == "" {
		return fmt.Errorf("history: call_id and conversation_id required")
	}
	// ON CONFLICT DO NOTHING keeps duplicate terminal transitions idempotent
	// at the storage layer as well.
	const q = `
		INSERT INTO call_records (call_id, conversation_id, raised_by, category, duration_ms, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (call_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q,
		rec.CallID, rec.ConversationID, rec.RaisedBy, string(rec.Category), rec.DurationMs, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: insert record: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListRecords(ctx context.Context, conversationID string, from, to time.Time) ([]Record, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("history: conversation_id required")
	}
	const q = `
		SELECT call_id, conversation_id, raised_by, category, duration_ms, status, created_at
		FROM call_records
		WHERE conversation_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, conversationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT call_id, conversation_id, raised_by, category, duration_ms, status, created_at
		FROM call_records
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list recent: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var category, status string
		if err := rows.Scan(&rec.CallID, &rec.ConversationID, &rec.RaisedBy, &category, &rec.DurationMs, &status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan record: %w", err)
		}
		rec.Category = signaling.Category(category)
		rec.Status = DeliveryStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
