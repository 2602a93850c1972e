package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo persists diagnostics events.
//
// Schema:
//
//	CREATE TABLE diagnostics_events (
//	    id         TEXT PRIMARY KEY,
//	    action     TEXT NOT NULL,
//	    call_id    TEXT NOT NULL DEFAULT '',
//	    detail     TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO diagnostics_events (id, action, call_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Action, e.CallID, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("diagnostics: append event: %w", err)
	}
	return nil
}
