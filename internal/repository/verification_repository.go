package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// VerificationRepository handles persistence of verification challenges.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create persists a new challenge row.
func (r *VerificationRepository) Create(ctx context.Context, verification *models.Verification) error {
	if verification.ID == "" {
		verification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	verification.CreatedAt = now
	verification.UpdatedAt = now

	const query = `INSERT INTO verifications (id, identifier, value, expires_at, created_at, updated_at)
        VALUES (:id, :identifier, :value, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, verification); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	return nil
}

// FindLatestByIdentifier returns the newest challenge for an identifier.
func (r *VerificationRepository) FindLatestByIdentifier(ctx context.Context, identifier string) (*models.Verification, error) {
	const query = `SELECT id, identifier, value, expires_at, created_at, updated_at FROM verifications WHERE identifier = $1 ORDER BY created_at DESC LIMIT 1`
	var verification models.Verification
	if err := r.db.GetContext(ctx, &verification, query, identifier); err != nil {
		return nil, err
	}
	return &verification, nil
}

// Delete removes a consumed challenge.
func (r *VerificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}
