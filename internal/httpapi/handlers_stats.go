package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleStatistics(c echo.Context) error {
	var repositoryID *uuid.UUID
	if raw := c.QueryParam("repository_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid repository_id")
		}
		if err := s.checkRepositoryAccess(c, id); err != nil {
			return err
		}
		repositoryID = &id
	}

	stats, err := s.deps.Stats.ForUser(c.Request().Context(), currentUser(c).ID, repositoryID, time.Now(), 30)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, StatisticsResponse{Statistics: stats, GeneratedAt: time.Now().UTC()})
}
