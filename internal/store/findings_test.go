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

func newMock(t *testing.T) (sqlmock.Sqlmock, DBTX) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, db
}

func findingRow(f *models.Finding) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "scan_id", "repository_id", "file_path", "line_number",
		"start_column", "end_column", "secret_type", "match_text_hash", "rule_id", "entropy",
		"context_before", "context_after", "commit_sha", "commit_author", "commit_date",
		"status", "severity", "resolved_at", "resolved_by", "resolution_note", "fixed_in_commit",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(
		f.ID, f.ScanID, f.RepositoryID, f.FilePath, f.LineNumber,
		f.StartColumn, f.EndColumn, f.SecretType, f.MatchTextHash, f.RuleID, f.Entropy,
		f.ContextBefore, f.ContextAfter, f.CommitSHA, f.CommitAuthor, f.CommitDate,
		f.Status, f.Severity, f.ResolvedAt, f.ResolvedBy, f.ResolutionNote, f.FixedInCommit,
		f.CreatedAt, f.UpdatedAt, f.DeletedAt,
	)
}

func sampleFinding() *models.Finding {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	return &models.Finding{
		ID:            uuid.New(),
		ScanID:        uuid.New(),
		RepositoryID:  uuid.New(),
		FilePath:      "src/config.py",
		LineNumber:    42,
		SecretType:    "api_key",
		MatchTextHash: "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3",
		Status:        models.FindingStatusActive,
		Severity:      models.SeverityHigh,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestFindingInsert(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewFindingRepository(db)
		f := sampleFinding()

		mock.ExpectQuery(`INSERT INTO findings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(f.ID, f.CreatedAt, f.UpdatedAt))

		_, err := repo.Insert(context.Background(), f)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewFindingRepository(db)

		mock.ExpectQuery(`INSERT INTO findings`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "findings_occurrence"})

		_, err := repo.Insert(context.Background(), sampleFinding())
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestFindingGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewFindingRepository(db)
		f := sampleFinding()

		mock.ExpectQuery(`(?s)SELECT .+ FROM findings WHERE id = \$1 AND deleted_at IS NULL`).
			WithArgs(f.ID).
			WillReturnRows(findingRow(f))

		got, err := repo.GetByID(context.Background(), f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.MatchTextHash, got.MatchTextHash)
		assert.Equal(t, f.FilePath, got.FilePath)
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mock, db := newMock(t)
		repo := NewFindingRepository(db)

		mock.ExpectQuery(`(?s)SELECT .+ FROM findings WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFindingList(t *testing.T) {
	mock, db := newMock(t)
	repo := NewFindingRepository(db)
	f := sampleFinding()
	status := models.FindingStatusActive

	mock.ExpectQuery(`SELECT count\(\*\) FROM findings WHERE deleted_at IS NULL AND repository_id = \$1 AND status = \$2`).
		WithArgs(f.RepositoryID, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`(?s)SELECT .+ FROM findings WHERE deleted_at IS NULL AND repository_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(f.RepositoryID, status, 50, 0).
		WillReturnRows(findingRow(f))

	findings, total, err := repo.List(context.Background(), FindingFilter{
		RepositoryID: &f.RepositoryID,
		Status:       &status,
		SortDesc:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, findings, 1)
	assert.Equal(t, f.ID, findings[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingUpdateColumns(t *testing.T) {
	mock, db := newMock(t)
	repo := NewFindingRepository(db)
	f := sampleFinding()
	f.Status = models.FindingStatusResolved

	// Only lifecycle columns appear in the UPDATE; the digest and
	// location are immutable.
	mock.ExpectExec(`UPDATE findings\s+SET status = \$2, resolved_at = \$3, resolved_by = \$4, resolution_note = \$5,\s+fixed_in_commit = \$6, updated_at = now\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), f))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFalsePositives(t *testing.T) {
	mock, db := newMock(t)
	repo := NewFindingRepository(db)

	mock.ExpectExec(`UPDATE findings SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkFalsePositives(context.Background(), nil,
		"a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike(`100%`))
	assert.Equal(t, `a\_b`, escapeLike(`a_b`))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, `plain`, escapeLike(`plain`))
}
