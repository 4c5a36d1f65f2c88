package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gitzenhq/gitzen/internal/ingest"
	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// handleIngestFinding is the HTTP face of the Ingestion Boundary. The
// request body is the only place the raw matched secret ever appears;
// the response carries its digest.
func (s *Server) handleIngestFinding(c echo.Context) error {
	var in ingest.FindingInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.checkRepositoryAccess(c, in.RepositoryID); err != nil {
		return err
	}

	finding, err := s.deps.Ingest.IngestFinding(c.Request().Context(), &in)
	if errors.Is(err, ingest.ErrDuplicateFinding) {
		// Idempotent resubmission; return the existing row.
		return c.JSON(http.StatusOK, toFindingResponse(finding))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFindingResponse(finding))
}

func (s *Server) handleListFindings(c echo.Context) error {
	filter, err := parseFindingFilter(c)
	if err != nil {
		return err
	}

	// Reads are always scoped to the caller's repositories.
	ownerID := currentUser(c).ID
	filter.OwnerID = &ownerID
	if filter.RepositoryID != nil {
		if err := s.checkRepositoryAccess(c, *filter.RepositoryID); err != nil {
			return err
		}
	}

	findings, total, err := s.deps.Findings.List(c.Request().Context(), *filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, FindingListResponse{
		Findings: toFindingResponses(findings),
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (s *Server) handleGetFinding(c echo.Context) error {
	finding, err := s.loadAccessibleFinding(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFindingResponse(finding))
}

func (s *Server) handleUpdateFinding(c echo.Context) error {
	finding, err := s.loadAccessibleFinding(c)
	if err != nil {
		return err
	}

	var update models.FindingUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if update.IsEmpty() {
		return echo.NewHTTPError(http.StatusBadRequest, "no updatable fields supplied")
	}
	if err := update.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if update.Status != nil && *update.Status == models.FindingStatusResolved && update.ResolvedBy == nil {
		id := currentUser(c).ID
		update.ResolvedBy = &id
	}

	update.ApplyTo(finding, time.Now())
	if err := s.deps.Findings.Update(c.Request().Context(), finding); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFindingResponse(finding))
}

func (s *Server) handleRelatedFindings(c echo.Context) error {
	finding, err := s.loadAccessibleFinding(c)
	if err != nil {
		return err
	}

	related, err := s.deps.Findings.ListRelated(c.Request().Context(), finding.ID, 50)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"finding_id": finding.ID,
		"related":    toFindingResponses(related),
	})
}

// loadAccessibleFinding parses :id, loads the finding, and verifies the
// caller owns its repository. Unowned findings read as absent.
func (s *Server) loadAccessibleFinding(c echo.Context) (*models.Finding, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid finding id")
	}

	finding, err := s.deps.Findings.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRepositoryAccess(c, finding.RepositoryID); err != nil {
		return nil, err
	}
	return finding, nil
}

// checkRepositoryAccess confirms the repository exists and belongs to
// the caller. Both failure modes read as not-found.
func (s *Server) checkRepositoryAccess(c echo.Context, repositoryID uuid.UUID) error {
	repo, err := s.deps.Repos.GetByID(c.Request().Context(), repositoryID)
	if err != nil {
		return err
	}
	if repo.UserID != currentUser(c).ID {
		return store.ErrNotFound
	}
	return nil
}

func parseFindingFilter(c echo.Context) (*store.FindingFilter, error) {
	filter := &store.FindingFilter{
		PathContains: c.QueryParam("path"),
		SortBy:       c.QueryParam("sort"),
		SortDesc:     c.QueryParam("order") != "asc",
		Limit:        50,
	}

	parseUUID := func(name string) (*uuid.UUID, error) {
		raw := c.QueryParam(name)
		if raw == "" {
			return nil, nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
		}
		return &id, nil
	}

	var err error
	if filter.RepositoryID, err = parseUUID("repository_id"); err != nil {
		return nil, err
	}
	if filter.ScanID, err = parseUUID("scan_id"); err != nil {
		return nil, err
	}

	if raw := c.QueryParam("status"); raw != "" {
		status := models.FindingStatus(raw)
		if !models.ValidFindingStatus(status) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("severity"); raw != "" {
		severity := models.Severity(raw)
		if !models.ValidSeverity(severity) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid severity")
		}
		filter.Severity = &severity
	}
	if raw := c.QueryParam("secret_type"); raw != "" {
		if !models.ValidSecretType(raw) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid secret_type")
		}
		filter.SecretType = &raw
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "limit must be 1-500")
		}
		filter.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "offset must be >= 0")
		}
		filter.Offset = n
	}
	return filter, nil
}
