package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedRequest(method, path, body, token string) *http.Request {
	var req *http.Request
	if body != "" {
		req = postJSON(path, body, token)
		req.Method = method
	} else {
		req = httptest.NewRequest(method, path, nil)
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	return req
}

func TestRepositoryEndpoints(t *testing.T) {
	t.Run("create composes full_name and returns the row", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID := uuid.New()
		token := ts.expectAuthUser(t, userID)

		ts.mock.ExpectQuery(`INSERT INTO repositories`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), time.Now(), time.Now()))

		body, _ := json.Marshal(map[string]any{
			"owner":      "alice",
			"name":       "app",
			"is_private": true,
		})
		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/repositories", string(body), token))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice/app", resp["full_name"])
		assert.Equal(t, "main", resp["default_branch"])
		assert.Equal(t, true, resp["scan_enabled"])
	})

	t.Run("owner with slash is rejected", func(t *testing.T) {
		ts := newTestServer(t, false)
		token := ts.expectAuthUser(t, uuid.New())

		body, _ := json.Marshal(map[string]any{"owner": "a/b", "name": "app"})
		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/repositories", string(body), token))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("list returns only the caller's rows", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID := uuid.New()
		token := ts.expectAuthUser(t, userID)
		now := time.Now()

		ts.mock.ExpectQuery(`(?s)SELECT .+ FROM repositories WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "github_repo_id", "owner", "name", "full_name", "description",
				"is_private", "default_branch", "scan_enabled", "last_scanned_at",
				"created_at", "updated_at", "deleted_at",
			}).AddRow(uuid.New(), userID, nil, "alice", "app", "alice/app", nil,
				false, "main", true, nil, now, now, nil))

		rec := ts.do(authedRequest(http.MethodGet, "/api/v1/repositories", "", token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "alice/app")
	})

	t.Run("deleting a foreign repository reads as not found", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID, repoID := uuid.New(), uuid.New()
		token := ts.expectAuthUser(t, userID)
		ts.expectRepoOwned(repoID, uuid.New()) // someone else's

		rec := ts.do(authedRequest(http.MethodDelete, "/api/v1/repositories/"+repoID.String(), "", token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestScanEndpoints(t *testing.T) {
	scanRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "repository_id", "commit_sha", "branch", "scan_type", "status",
			"total_files_scanned", "total_findings", "high_severity_count", "error_message",
			"triggered_by", "started_at", "completed_at", "created_at", "updated_at", "deleted_at",
		})
	}

	t.Run("create registers a pending run on the default branch", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID, repoID := uuid.New(), uuid.New()
		token := ts.expectAuthUser(t, userID)
		ts.expectRepoOwned(repoID, userID)

		ts.mock.ExpectQuery(`INSERT INTO scans`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), time.Now(), time.Now()))

		body, _ := json.Marshal(map[string]any{"commit_sha": "0123456789abcdef0123456789abcdef01234567"})
		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/repositories/"+repoID.String()+"/scans", string(body), token))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, "main", resp["branch"])
		assert.Equal(t, "full", resp["scan_type"])
		assert.Equal(t, "alice", resp["triggered_by"])
	})

	t.Run("missing commit_sha is rejected before storage", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID, repoID := uuid.New(), uuid.New()
		token := ts.expectAuthUser(t, userID)
		ts.expectRepoOwned(repoID, userID)

		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/repositories/"+repoID.String()+"/scans", `{}`, token))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.NoError(t, ts.mock.ExpectationsWereMet())
	})

	t.Run("complete records counters and touches the repository", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID, repoID, scanID := uuid.New(), uuid.New(), uuid.New()
		token := ts.expectAuthUser(t, userID)
		now := time.Now()

		ts.mock.ExpectQuery(`(?s)SELECT .+ FROM scans WHERE id = \$1`).
			WillReturnRows(scanRows().AddRow(scanID, repoID, "abc123", "main", "full", "running",
				0, 0, 0, nil, nil, &now, nil, now, now, nil))
		ts.expectRepoOwned(repoID, userID)
		ts.mock.ExpectExec(`UPDATE scans`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		ts.mock.ExpectExec(`UPDATE repositories SET last_scanned_at`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		body, _ := json.Marshal(map[string]any{
			"status":              "completed",
			"total_files_scanned": 120,
			"total_findings":      3,
			"high_severity_count": 1,
		})
		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/scans/"+scanID.String()+"/complete", string(body), token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp["status"])
		assert.Equal(t, float64(3), resp["total_findings"])
		assert.NoError(t, ts.mock.ExpectationsWereMet())
	})

	t.Run("finished scans cannot be completed twice", func(t *testing.T) {
		ts := newTestServer(t, false)
		userID, repoID, scanID := uuid.New(), uuid.New(), uuid.New()
		token := ts.expectAuthUser(t, userID)
		now := time.Now()

		ts.mock.ExpectQuery(`(?s)SELECT .+ FROM scans WHERE id = \$1`).
			WillReturnRows(scanRows().AddRow(scanID, repoID, "abc123", "main", "full", "completed",
				10, 0, 0, nil, nil, &now, &now, now, now, nil))
		ts.expectRepoOwned(repoID, userID)

		rec := ts.do(authedRequest(http.MethodPost, "/api/v1/scans/"+scanID.String()+"/complete", `{"status":"completed"}`, token))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
