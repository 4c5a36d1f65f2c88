package store

import (
	"context"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
)

// RepoRepository persists linked source repositories.
type RepoRepository struct {
	db DBTX
}

func NewRepoRepository(db DBTX) *RepoRepository {
	return &RepoRepository{db: db}
}

const repoColumns = `id, user_id, github_repo_id, owner, name, full_name, description,
	is_private, default_branch, scan_enabled, last_scanned_at, created_at, updated_at, deleted_at`

func scanRepo(row interface{ Scan(...any) error }) (*models.Repository, error) {
	repo := &models.Repository{}
	err := row.Scan(&repo.ID, &repo.UserID, &repo.GitHubRepoID, &repo.Owner, &repo.Name,
		&repo.FullName, &repo.Description, &repo.IsPrivate, &repo.DefaultBranch,
		&repo.ScanEnabled, &repo.LastScannedAt, &repo.CreatedAt, &repo.UpdatedAt, &repo.DeletedAt)
	if err != nil {
		return nil, mapScanError(err)
	}
	return repo, nil
}

func (r *RepoRepository) Create(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	query := `
		INSERT INTO repositories (user_id, github_repo_id, owner, name, full_name, description, is_private, default_branch, scan_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		repo.UserID, repo.GitHubRepoID, repo.Owner, repo.Name, repo.FullName,
		repo.Description, repo.IsPrivate, repo.DefaultBranch, repo.ScanEnabled,
	).Scan(&repo.ID, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return repo, nil
}

func (r *RepoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE id = $1 AND deleted_at IS NULL`
	return scanRepo(r.db.QueryRowContext(ctx, query, id))
}

func (r *RepoRepository) GetByFullName(ctx context.Context, userID uuid.UUID, fullName string) (*models.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE user_id = $1 AND full_name = $2 AND deleted_at IS NULL`
	return scanRepo(r.db.QueryRowContext(ctx, query, userID, fullName))
}

func (r *RepoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Repository, error) {
	query := `SELECT ` + repoColumns + ` FROM repositories WHERE user_id = $1 AND deleted_at IS NULL ORDER BY full_name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	var repos []*models.Repository
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// TouchLastScanned records a completed scan time.
func (r *RepoRepository) TouchLastScanned(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE repositories SET last_scanned_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

func (r *RepoRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE repositories SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}
