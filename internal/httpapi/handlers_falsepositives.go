package httpapi

import (
	"net/http"

	"github.com/gitzenhq/gitzen/internal/ingest"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleCreateFalsePositive(c echo.Context) error {
	var in ingest.FalsePositiveInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if in.RepositoryID != nil {
		if err := s.checkRepositoryAccess(c, *in.RepositoryID); err != nil {
			return err
		}
	}

	rule, err := s.deps.Ingest.RegisterFalsePositive(c.Request().Context(), currentUser(c).ID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFalsePositiveResponse(rule))
}

func (s *Server) handleListFalsePositives(c echo.Context) error {
	rules, err := s.deps.FalsePositives.ListByUser(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}

	out := make([]FalsePositiveResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toFalsePositiveResponse(rule))
	}
	return c.JSON(http.StatusOK, map[string]any{"false_positives": out})
}

// handleDeactivateFalsePositive turns a rule off. The row survives for
// audit; DELETE expresses intent, not storage semantics.
func (s *Server) handleDeactivateFalsePositive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}

	rule, err := s.deps.FalsePositives.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if rule.UserID != currentUser(c).ID {
		return store.ErrNotFound
	}

	if err := s.deps.FalsePositives.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
