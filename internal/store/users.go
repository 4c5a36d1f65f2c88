package store

import (
	"context"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
)

// UserRepository persists user accounts.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, github_id, avatar_url,
	access_token_hash, role, is_active, last_login_at, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GitHubID,
		&u.AvatarURL, &u.AccessTokenHash, &u.Role, &u.IsActive, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, mapScanError(err)
	}
	return u, nil
}

// Create inserts a user. Username/email collisions with live rows return
// ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, github_id, avatar_url, access_token_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.GitHubID, u.AvatarURL, u.AccessTokenHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	u.IsActive = true
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByGitHubID(ctx context.Context, githubID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, githubID))
}

// RecordLogin stamps last_login_at and, for OAuth logins, rotates the
// stored access token digest. tokenHash is a SHA-256 hex digest, never
// the token itself.
func (r *UserRepository) RecordLogin(ctx context.Context, id uuid.UUID, now time.Time, tokenHash *string) error {
	query := `
		UPDATE users
		SET last_login_at = $2,
		    access_token_hash = COALESCE($3, access_token_hash),
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, now, tokenHash)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}

// SoftDelete tombstones the account.
func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapStoreError(err)
	}
	return requireAffected(res)
}
