package repository

import (
	"context"
	"errors"
	"fmt"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles database operations for signed-in users
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, email, push_token, last_conversation_id, created_at, updated_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.Email, &s.PushToken, &s.LastConversationID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert opens a session for s.UserID. When the user already has one, from
// another device, it is kept and s receives its ID and creation time.
func (r *SessionRepository) Upsert(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, s.ID, s.UserID, s.Email, s.CreatedAt).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetByUserID retrieves the session of a user
func (r *SessionRepository) GetByUserID(ctx context.Context, userID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1`
	s, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// DeleteByUserID removes the session of a user
func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UpdatePushToken updates the APNs device token of a user
func (r *SessionRepository) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	query := `UPDATE sessions SET push_token = $1, updated_at = now() WHERE user_id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ErrSessionNotFound
	}
	return nil
}

// SetLastConversation records the conversation a user viewed last, nil clears it
func (r *SessionRepository) SetLastConversation(ctx context.Context, userID int64, matchID *int64) error {
	query := `UPDATE sessions SET last_conversation_id = $1, updated_at = now() WHERE user_id = $2`
	result, err := r.db.Exec(ctx, query, matchID, userID)
	if err != nil {
		return fmt.Errorf("failed to set last conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ErrSessionNotFound
	}
	return nil
}

// ListActive returns every stored session, oldest first
func (r *SessionRepository) ListActive(ctx context.Context) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
