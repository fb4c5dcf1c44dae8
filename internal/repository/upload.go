package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillswap-gateway/internal/apperr"
	"skillswap-gateway/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadRepository tracks photos staged in S3
type UploadRepository struct {
	db *pgxpool.Pool
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create records a newly issued staging key
func (r *UploadRepository) Create(ctx context.Context, u *models.StagedUpload) error {
	query := `
		INSERT INTO staged_uploads (key, user_id, filename, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, u.Key, u.UserID, u.Filename, u.ContentType, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create staged upload: %w", err)
	}
	return nil
}

// GetByKey retrieves a staged upload by its object key
func (r *UploadRepository) GetByKey(ctx context.Context, key string) (*models.StagedUpload, error) {
	query := `
		SELECT key, user_id, filename, content_type, photo_id, created_at, completed_at
		FROM staged_uploads
		WHERE key = $1
	`
	var u models.StagedUpload
	err := r.db.QueryRow(ctx, query, key).Scan(
		&u.Key, &u.UserID, &u.Filename, &u.ContentType, &u.PhotoID,
		&u.CreatedAt, &u.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get staged upload: %w", err)
	}
	return &u, nil
}

// MarkCompleted records the backend photo created from a staged upload
func (r *UploadRepository) MarkCompleted(ctx context.Context, key string, photoID int64, at time.Time) error {
	query := `UPDATE staged_uploads SET photo_id = $1, completed_at = $2 WHERE key = $3 AND completed_at IS NULL`
	result, err := r.db.Exec(ctx, query, photoID, at, key)
	if err != nil {
		return fmt.Errorf("failed to complete staged upload: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ErrUploadCompleted
	}
	return nil
}
