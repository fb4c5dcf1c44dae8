package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		push_token TEXT,
		last_conversation_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS badge_states (
		user_id BIGINT PRIMARY KEY,
		armed BOOLEAN NOT NULL DEFAULT false,
		match_baseline INTEGER NOT NULL DEFAULT 0,
		message_baseline INTEGER NOT NULL DEFAULT 0,
		unread_matches INTEGER NOT NULL DEFAULT 0,
		unread_messages INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS staged_uploads (
		key TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		photo_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS staged_uploads_user_id_idx ON staged_uploads (user_id)`,
}

// EnsureSchema creates the gateway's tables when they do not exist yet
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
