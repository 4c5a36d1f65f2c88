package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateScanRequest registers a scan run against a repository. The run
// starts pending; the scanner reports progress through the start and
// complete endpoints.
type CreateScanRequest struct {
	CommitSHA string `json:"commit_sha"`
	Branch    string `json:"branch"`
	ScanType  string `json:"scan_type"`
}

// CompleteScanRequest closes a run with its aggregate counters.
type CompleteScanRequest struct {
	Status            models.ScanStatus `json:"status"`
	TotalFilesScanned int               `json:"total_files_scanned"`
	TotalFindings     int               `json:"total_findings"`
	HighSeverityCount int               `json:"high_severity_count"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
}

var scanTypes = map[string]bool{"full": true, "incremental": true, "targeted": true}

func (s *Server) handleCreateScan(c echo.Context) error {
	repo, err := s.loadOwnedRepository(c)
	if err != nil {
		return err
	}
	if !repo.ScanEnabled {
		return echo.NewHTTPError(http.StatusConflict, "scanning is disabled for this repository")
	}

	var req CreateScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CommitSHA == "" || len(req.CommitSHA) > 40 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "commit_sha is required (max 40 chars)")
	}
	if req.Branch == "" {
		req.Branch = repo.DefaultBranch
	}
	if req.ScanType == "" {
		req.ScanType = "full"
	}
	if !scanTypes[req.ScanType] {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "scan_type must be full, incremental or targeted")
	}

	username := currentUser(c).Username
	scan := &models.Scan{
		RepositoryID: repo.ID,
		CommitSHA:    req.CommitSHA,
		Branch:       req.Branch,
		ScanType:     req.ScanType,
		Status:       models.ScanStatusPending,
		TriggeredBy:  &username,
	}
	created, err := s.deps.Scans.Create(c.Request().Context(), scan)
	if err != nil {
		return err
	}

	s.logger.Info("scan registered",
		zap.String("scan_id", created.ID.String()),
		zap.String("repository_id", repo.ID.String()),
		zap.String("scan_type", created.ScanType))
	return c.JSON(http.StatusCreated, toScanResponse(created))
}

func (s *Server) handleListScans(c echo.Context) error {
	repo, err := s.loadOwnedRepository(c)
	if err != nil {
		return err
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be 1-200")
		}
		limit = n
	}

	scans, err := s.deps.Scans.ListByRepository(c.Request().Context(), repo.ID, limit)
	if err != nil {
		return err
	}
	out := make([]ScanResponse, 0, len(scans))
	for _, scan := range scans {
		out = append(out, toScanResponse(scan))
	}
	return c.JSON(http.StatusOK, map[string]any{"scans": out})
}

func (s *Server) handleGetScan(c echo.Context) error {
	scan, err := s.loadAccessibleScan(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScanResponse(scan))
}

func (s *Server) handleStartScan(c echo.Context) error {
	scan, err := s.loadAccessibleScan(c)
	if err != nil {
		return err
	}
	if scan.Status != models.ScanStatusPending {
		return echo.NewHTTPError(http.StatusConflict, "scan is not pending")
	}

	now := time.Now()
	if err := s.deps.Scans.MarkRunning(c.Request().Context(), scan.ID, now); err != nil {
		return err
	}
	scan.Status = models.ScanStatusRunning
	scan.StartedAt = &now
	return c.JSON(http.StatusOK, toScanResponse(scan))
}

func (s *Server) handleCompleteScan(c echo.Context) error {
	scan, err := s.loadAccessibleScan(c)
	if err != nil {
		return err
	}
	if scan.Status == models.ScanStatusCompleted || scan.Status == models.ScanStatusFailed {
		return echo.NewHTTPError(http.StatusConflict, "scan already finished")
	}

	var req CompleteScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Status != models.ScanStatusCompleted && req.Status != models.ScanStatusFailed {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "status must be completed or failed")
	}
	if req.TotalFilesScanned < 0 || req.TotalFindings < 0 || req.HighSeverityCount < 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "counters must be non-negative")
	}

	ctx := c.Request().Context()
	now := time.Now()
	err = s.deps.Scans.Complete(ctx, scan.ID, req.Status,
		req.TotalFilesScanned, req.TotalFindings, req.HighSeverityCount, req.ErrorMessage, now)
	if err != nil {
		return err
	}

	if req.Status == models.ScanStatusCompleted {
		if err := s.deps.Repos.TouchLastScanned(ctx, scan.RepositoryID, now); err != nil {
			s.logger.Warn("failed to record last scan time",
				zap.String("repository_id", scan.RepositoryID.String()), zap.Error(err))
		}
	}

	scan.Status = req.Status
	scan.TotalFilesScanned = req.TotalFilesScanned
	scan.TotalFindings = req.TotalFindings
	scan.HighSeverityCount = req.HighSeverityCount
	scan.ErrorMessage = req.ErrorMessage
	scan.CompletedAt = &now
	return c.JSON(http.StatusOK, toScanResponse(scan))
}

// loadAccessibleScan parses :id, loads the scan, and verifies the caller
// owns its repository.
func (s *Server) loadAccessibleScan(c echo.Context) (*models.Scan, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid scan id")
	}
	scan, err := s.deps.Scans.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRepositoryAccess(c, scan.RepositoryID); err != nil {
		return nil, err
	}
	return scan, nil
}
