package store

import (
	"context"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
)

// FalsePositiveRepository persists suppression rules. PatternHash is a
// SHA-256 hex digest; the raw pattern never reaches this layer.
type FalsePositiveRepository struct {
	db DBTX
}

func NewFalsePositiveRepository(db DBTX) *FalsePositiveRepository {
	return &FalsePositiveRepository{db: db}
}

const falsePositiveColumns = `id, repository_id, user_id, secret_type, pattern_hash,
	file_path_pattern, description, reason, scope, is_active, times_matched,
	last_matched_at, created_at, updated_at, deleted_at`

func scanFalsePositive(row interface{ Scan(...any) error }) (*models.FalsePositive, error) {
	fp := &models.FalsePositive{}
	err := row.Scan(&fp.ID, &fp.RepositoryID, &fp.UserID, &fp.SecretType, &fp.PatternHash,
		&fp.FilePathPattern, &fp.Description, &fp.Reason, &fp.Scope, &fp.IsActive,
		&fp.TimesMatched, &fp.LastMatchedAt, &fp.CreatedAt, &fp.UpdatedAt, &fp.DeletedAt)
	if err != nil {
		return nil, mapScanError(err)
	}
	return fp, nil
}

// Create inserts a rule. A second active rule for the same
// (repository, pattern_hash) returns ErrDuplicate.
func (r *FalsePositiveRepository) Create(ctx context.Context, fp *models.FalsePositive) (*models.FalsePositive, error) {
	query := `
		INSERT INTO false_positives (repository_id, user_id, secret_type, pattern_hash,
			file_path_pattern, description, reason, scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		fp.RepositoryID, fp.UserID, fp.SecretType, fp.PatternHash,
		fp.FilePathPattern, fp.Description, fp.Reason, fp.Scope,
	).Scan(&fp.ID, &fp.CreatedAt, &fp.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	fp.IsActive = true
	return fp, nil
}

func (r *FalsePositiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FalsePositive, error) {
	query := `SELECT ` + falsePositiveColumns + ` FROM false_positives WHERE id = $1 AND deleted_at IS NULL`
	return scanFalsePositive(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns the user's rules, active first, newest first.
func (r *FalsePositiveRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FalsePositive, error) {
	query := `SELECT ` + falsePositiveColumns + ` FROM false_positives
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY is_active DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	var rules []*models.FalsePositive
	for rows.Next() {
		fp, err := scanFalsePositive(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fp)
	}
	return rules, rows.Err()
}

// Deactivate turns a rule off without losing its history.
func (r *FalsePositiveRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE false_positives SET is_active = FALSE, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

// RecordMatch bumps the match counter when a rule suppresses findings.
func (r *FalsePositiveRepository) RecordMatch(ctx context.Context, id uuid.UUID, matched int64, at time.Time) error {
	query := `
		UPDATE false_positives
		SET times_matched = times_matched + $2, last_matched_at = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, matched, at)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}
