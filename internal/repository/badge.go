package repository

import (
	"context"
	"errors"
	"fmt"

	"skillswap-gateway/internal/notify"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BadgeRepository persists notification counters so that badges survive a restart
type BadgeRepository struct {
	db *pgxpool.Pool
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Get returns the saved counter state of a user, or nil when there is none
func (r *BadgeRepository) Get(ctx context.Context, userID int64) (*notify.State, error) {
	query := `
		SELECT armed, match_baseline, message_baseline, unread_matches, unread_messages
		FROM badge_states
		WHERE user_id = $1
	`
	var s notify.State
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.Armed, &s.MatchBaseline, &s.MessageBaseline, &s.UnreadMatches, &s.UnreadMessages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge state: %w", err)
	}
	return &s, nil
}

// Save stores the counter state of a user
func (r *BadgeRepository) Save(ctx context.Context, userID int64, s notify.State) error {
	query := `
		INSERT INTO badge_states (user_id, armed, match_baseline, message_baseline, unread_matches, unread_messages, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE
		SET armed = EXCLUDED.armed,
			match_baseline = EXCLUDED.match_baseline,
			message_baseline = EXCLUDED.message_baseline,
			unread_matches = EXCLUDED.unread_matches,
			unread_messages = EXCLUDED.unread_messages,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		userID, s.Armed, s.MatchBaseline, s.MessageBaseline, s.UnreadMatches, s.UnreadMessages,
	)
	if err != nil {
		return fmt.Errorf("failed to save badge state: %w", err)
	}
	return nil
}

// Delete removes the counter state of a user
func (r *BadgeRepository) Delete(ctx context.Context, userID int64) error {
	query := `DELETE FROM badge_states WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete badge state: %w", err)
	}
	return nil
}
