package store

import (
	"context"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
)

// ScanRepository persists scan runs.
type ScanRepository struct {
	db DBTX
}

func NewScanRepository(db DBTX) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, repository_id, commit_sha, branch, scan_type, status,
	total_files_scanned, total_findings, high_severity_count, error_message,
	triggered_by, started_at, completed_at, created_at, updated_at, deleted_at`

func scanScan(row interface{ Scan(...any) error }) (*models.Scan, error) {
	s := &models.Scan{}
	err := row.Scan(&s.ID, &s.RepositoryID, &s.CommitSHA, &s.Branch, &s.ScanType,
		&s.Status, &s.TotalFilesScanned, &s.TotalFindings, &s.HighSeverityCount,
		&s.ErrorMessage, &s.TriggeredBy, &s.StartedAt, &s.CompletedAt,
		&s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		return nil, mapScanError(err)
	}
	return s, nil
}

func (r *ScanRepository) Create(ctx context.Context, s *models.Scan) (*models.Scan, error) {
	query := `
		INSERT INTO scans (repository_id, commit_sha, branch, scan_type, status, triggered_by, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.RepositoryID, s.CommitSHA, s.Branch, s.ScanType, s.Status, s.TriggeredBy, s.StartedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return s, nil
}

func (r *ScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1 AND deleted_at IS NULL`
	return scanScan(r.db.QueryRowContext(ctx, query, id))
}

func (r *ScanRepository) ListByRepository(ctx context.Context, repositoryID uuid.UUID, limit int) ([]*models.Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + scanColumns + ` FROM scans
		WHERE repository_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, repositoryID, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// Complete finalizes a run and records the aggregate counters.
func (r *ScanRepository) Complete(ctx context.Context, id uuid.UUID, status models.ScanStatus, filesScanned, totalFindings, highSeverity int, errMsg *string, at time.Time) error {
	query := `
		UPDATE scans
		SET status = $2, total_files_scanned = $3, total_findings = $4,
		    high_severity_count = $5, error_message = $6, completed_at = $7, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, status, filesScanned, totalFindings, highSeverity, errMsg, at)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

// MarkRunning transitions a pending scan to running.
func (r *ScanRepository) MarkRunning(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE scans SET status = $2, started_at = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, models.ScanStatusRunning, at)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}
