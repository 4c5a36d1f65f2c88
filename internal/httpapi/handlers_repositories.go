package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateRepositoryRequest links a source repository to the account.
type CreateRepositoryRequest struct {
	GitHubRepoID  *int64  `json:"github_repo_id,omitempty"`
	Owner         string  `json:"owner"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	IsPrivate     bool    `json:"is_private"`
	DefaultBranch string  `json:"default_branch"`
	ScanEnabled   *bool   `json:"scan_enabled,omitempty"`
}

func (req *CreateRepositoryRequest) validate() error {
	if req.Owner == "" || req.Name == "" {
		return errors.New("owner and name are required")
	}
	if strings.ContainsAny(req.Owner, "/ ") || strings.ContainsAny(req.Name, "/ ") {
		return errors.New("owner and name must not contain '/' or spaces")
	}
	if len(req.Owner) > 100 || len(req.Name) > 200 {
		return errors.New("owner or name too long")
	}
	return nil
}

func (s *Server) handleCreateRepository(c echo.Context) error {
	var req CreateRepositoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if req.DefaultBranch == "" {
		req.DefaultBranch = "main"
	}
	scanEnabled := true
	if req.ScanEnabled != nil {
		scanEnabled = *req.ScanEnabled
	}

	repo := &models.Repository{
		UserID:        currentUser(c).ID,
		GitHubRepoID:  req.GitHubRepoID,
		Owner:         req.Owner,
		Name:          req.Name,
		FullName:      req.Owner + "/" + req.Name,
		Description:   req.Description,
		IsPrivate:     req.IsPrivate,
		DefaultBranch: req.DefaultBranch,
		ScanEnabled:   scanEnabled,
	}
	created, err := s.deps.Repos.Create(c.Request().Context(), repo)
	if errors.Is(err, store.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "repository already linked")
	}
	if err != nil {
		return err
	}

	s.logger.Info("repository linked",
		zap.String("repository_id", created.ID.String()),
		zap.String("full_name", created.FullName))
	return c.JSON(http.StatusCreated, toRepositoryResponse(created))
}

func (s *Server) handleListRepositories(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUser(c).ID

	if fullName := c.QueryParam("full_name"); fullName != "" {
		repo, err := s.deps.Repos.GetByFullName(ctx, userID, fullName)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"repositories": []RepositoryResponse{toRepositoryResponse(repo)},
		})
	}

	repos, err := s.deps.Repos.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	out := make([]RepositoryResponse, 0, len(repos))
	for _, repo := range repos {
		out = append(out, toRepositoryResponse(repo))
	}
	return c.JSON(http.StatusOK, map[string]any{"repositories": out})
}

func (s *Server) handleGetRepository(c echo.Context) error {
	repo, err := s.loadOwnedRepository(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRepositoryResponse(repo))
}

// handleDeleteRepository soft-deletes the link. Findings and scans keep
// their rows for audit; they become unreachable through the ownership
// scope.
func (s *Server) handleDeleteRepository(c echo.Context) error {
	repo, err := s.loadOwnedRepository(c)
	if err != nil {
		return err
	}
	if err := s.deps.Repos.SoftDelete(c.Request().Context(), repo.ID); err != nil {
		return err
	}
	s.logger.Info("repository unlinked", zap.String("repository_id", repo.ID.String()))
	return c.NoContent(http.StatusNoContent)
}

// loadOwnedRepository parses :id and loads the repository, requiring
// ownership. Foreign repositories read as absent.
func (s *Server) loadOwnedRepository(c echo.Context) (*models.Repository, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid repository id")
	}
	repo, err := s.deps.Repos.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if repo.UserID != currentUser(c).ID {
		return nil, store.ErrNotFound
	}
	return repo, nil
}
