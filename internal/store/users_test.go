package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewUserRepository(db)

		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(id, now, now))

		hash := "$2a$12$notarealhashbutlookslikeone"
		u, err := repo.Create(context.Background(), &models.User{
			Username:     "alice",
			PasswordHash: &hash,
			Role:         models.RoleUser,
		})
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.True(t, u.IsActive)
	})

	t.Run("taken username maps to ErrDuplicate", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_live"})

		hash := "x"
		_, err := repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: &hash})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestUserGetByEmail(t *testing.T) {
	mock, db := newMock(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	email := "alice@example.com"
	hash := "$2a$12$notarealhashbutlookslikeone"
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "github_id", "avatar_url",
			"access_token_hash", "role", "is_active", "last_login_at",
			"created_at", "updated_at", "deleted_at",
		}).AddRow(id, "alice", &email, &hash, nil, nil, nil, "user", true, nil, now, now, nil))

	u, err := repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	require.NotNil(t, u.PasswordHash)
	assert.Nil(t, u.GitHubID)
}

func TestRecordLogin(t *testing.T) {
	mock, db := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 1))

	tokenHash := "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"
	err := repo.RecordLogin(context.Background(), uuid.New(), time.Now(), &tokenHash)
	assert.NoError(t, err)
}

func TestRecordLoginMissingUser(t *testing.T) {
	mock, db := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordLogin(context.Background(), uuid.New(), time.Now(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
