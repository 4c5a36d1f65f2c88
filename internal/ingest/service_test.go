package ingest

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(store.NewFindingRepository(db), store.NewFalsePositiveRepository(db), nil, nil)
	return svc, mock
}

func findingColumns() []string {
	return []string{
		"id", "scan_id", "repository_id", "file_path", "line_number",
		"start_column", "end_column", "secret_type", "match_text_hash", "rule_id", "entropy",
		"context_before", "context_after", "commit_sha", "commit_author", "commit_date",
		"status", "severity", "resolved_at", "resolved_by", "resolution_note", "fixed_in_commit",
		"created_at", "updated_at", "deleted_at",
	}
}

func TestIngestFinding(t *testing.T) {
	t.Run("stores the digest, never the secret", func(t *testing.T) {
		svc, mock := newService(t)
		in := validFindingInput()
		secret := in.MatchedSecret
		wantHash, err := privacy.HashSecret(secret)
		require.NoError(t, err)

		var gotHash string
		mock.ExpectQuery(`INSERT INTO findings`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), in.FilePath, in.LineNumber,
				nil, nil, in.SecretType,
				mockArgCapture(&gotHash),
				nil, nil, nil, nil, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), time.Now(), time.Now()))

		f, err := svc.IngestFinding(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, wantHash, f.MatchTextHash)
		assert.Equal(t, wantHash, gotHash)
		assert.Empty(t, in.MatchedSecret, "raw secret must be dropped after hashing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate occurrence coalesces", func(t *testing.T) {
		svc, mock := newService(t)
		in := validFindingInput()
		existingID := uuid.New()
		hash, _ := privacy.HashSecret(in.MatchedSecret)

		mock.ExpectQuery(`INSERT INTO findings`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "findings_occurrence"})
		mock.ExpectQuery(`(?s)SELECT .+ FROM findings\s+WHERE scan_id = \$1 AND file_path = \$2 AND line_number = \$3 AND match_text_hash = \$4`).
			WillReturnRows(sqlmock.NewRows(findingColumns()).AddRow(
				existingID, in.ScanID, in.RepositoryID, in.FilePath, in.LineNumber,
				nil, nil, in.SecretType, hash, nil, nil,
				nil, nil, nil, nil, nil,
				"active", "medium", nil, nil, nil, nil,
				time.Now(), time.Now(), nil))

		f, err := svc.IngestFinding(context.Background(), in)
		assert.ErrorIs(t, err, ErrDuplicateFinding)
		require.NotNil(t, f)
		assert.Equal(t, existingID, f.ID)
	})

	t.Run("invalid input never reaches the store", func(t *testing.T) {
		svc, mock := newService(t)
		in := validFindingInput()
		in.FilePath = "../escape"

		_, err := svc.IngestFinding(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("context lines are redacted before storage", func(t *testing.T) {
		svc, mock := newService(t)
		in := validFindingInput()
		before := `password = "Sup3rSecretPW"`
		in.ContextBefore = &before

		var gotBefore string
		mock.ExpectQuery(`INSERT INTO findings`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil,
				mockArgCapture(&gotBefore),
				nil, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), time.Now(), time.Now()))

		_, err := svc.IngestFinding(context.Background(), in)
		require.NoError(t, err)
		assert.NotContains(t, gotBefore, "Sup3rSecretPW")
	})
}

func TestRegisterFalsePositive(t *testing.T) {
	t.Run("hashes pattern and retro-marks findings", func(t *testing.T) {
		svc, mock := newService(t)
		userID := uuid.New()
		in := &FalsePositiveInput{
			SecretType: "api_key",
			Pattern:    "TEST_API_KEY_PLACEHOLDER",
			Reason:     "fixture value",
		}
		wantHash, _ := privacy.HashPattern("TEST_API_KEY_PLACEHOLDER")
		ruleID := uuid.New()

		mock.ExpectQuery(`INSERT INTO false_positives`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(ruleID, time.Now(), time.Now()))
		mock.ExpectExec(`UPDATE findings SET status = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE false_positives`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rule, err := svc.RegisterFalsePositive(context.Background(), userID, in)
		require.NoError(t, err)
		assert.Equal(t, wantHash, rule.PatternHash)
		assert.Equal(t, 2, rule.TimesMatched)
		assert.Empty(t, in.Pattern, "raw pattern must be dropped after hashing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate rule", func(t *testing.T) {
		svc, mock := newService(t)
		in := &FalsePositiveInput{SecretType: "api_key", Pattern: "x", Reason: "r"}

		mock.ExpectQuery(`INSERT INTO false_positives`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := svc.RegisterFalsePositive(context.Background(), uuid.New(), in)
		assert.ErrorIs(t, err, ErrDuplicateRule)
	})
}

// mockArgCapture records the string form of a query argument.
func mockArgCapture(dst *string) sqlmock.Argument {
	return argCapture{dst: dst}
}

type argCapture struct{ dst *string }

func (c argCapture) Match(v driver.Value) bool {
	if s, ok := v.(string); ok {
		*c.dst = s
		return true
	}
	return false
}
