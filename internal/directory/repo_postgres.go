package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo reads users from the messenger's users table.
//
// Expected schema (owned and migrated by the messenger core, not this service):
//
//	CREATE TABLE users (
//	    user_id     TEXT PRIMARY KEY,
//	    full_name   TEXT NOT NULL,
//	    avatar_url  TEXT NOT NULL DEFAULT '',
//	    is_disabled BOOLEAN NOT NULL DEFAULT FALSE
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetUser(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, fmt.Errorf("directory: user_id required")
	}
	const q = `SELECT user_id, full_name, avatar_url, is_disabled FROM users WHERE user_id = $1`
	var u User
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&u.UserID, &u.FullName, &u.AvatarURL, &u.IsDisabled)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("directory: query user: %w", err)
	}
	return u, nil
}
