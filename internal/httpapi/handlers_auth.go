package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gitzenhq/gitzen/internal/auth"
	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RegisterRequest creates an email/password account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an email/password account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := auth.ValidateUsername(req.Username); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.Password, s.deps.BcryptCost)
	if err != nil {
		return err
	}
	req.Password = ""

	user := &models.User{
		Username:     req.Username,
		Email:        &req.Email,
		PasswordHash: &hash,
		Role:         models.RoleUser,
	}
	created, err := s.deps.Users.Create(c.Request().Context(), user)
	if errors.Is(err, store.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "username or email already taken")
	}
	if err != nil {
		return err
	}

	s.logger.Info("user registered",
		zap.String("user_id", created.ID.String()),
		zap.String("username", created.Username))

	return s.issueToken(c, http.StatusCreated, created)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := s.deps.Users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		// Same failure as a wrong password; account existence is not
		// disclosed.
		return auth.ErrInvalidCredentials
	}
	if user.PasswordHash == nil {
		return auth.ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(req.Password, *user.PasswordHash); err != nil {
		return err
	}
	req.Password = ""
	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
	}

	if err := s.deps.Users.RecordLogin(c.Request().Context(), user.ID, time.Now(), nil); err != nil {
		s.logger.Warn("failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return s.issueToken(c, http.StatusOK, user)
}

func (s *Server) handleGitHubLogin(c echo.Context) error {
	url, err := s.deps.OAuth.AuthURL()
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

func (s *Server) handleGitHubCallback(c echo.Context) error {
	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing state or code")
	}

	ctx := c.Request().Context()
	token, err := s.deps.OAuth.Exchange(ctx, state, code)
	if err != nil {
		return err
	}

	ghUser, err := s.deps.OAuth.FetchUser(ctx, token)
	if err != nil {
		return err
	}

	// Only the digest of the OAuth token survives this function.
	tokenHash, err := privacy.HashSecret(token.AccessToken)
	if err != nil {
		return err
	}
	token.AccessToken = ""

	user, err := s.deps.Users.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		newUser := &models.User{
			Username:        ghUser.Login,
			GitHubID:        &ghUser.ID,
			AccessTokenHash: &tokenHash,
			Role:            models.RoleUser,
		}
		if ghUser.Email != "" {
			newUser.Email = &ghUser.Email
		}
		if ghUser.AvatarURL != "" {
			newUser.AvatarURL = &ghUser.AvatarURL
		}
		user, err = s.deps.Users.Create(ctx, newUser)
		if errors.Is(err, store.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "username already taken by a password account")
		}
		if err != nil {
			return err
		}
		s.logger.Info("user registered via github",
			zap.String("user_id", user.ID.String()),
			zap.Int64("github_id", ghUser.ID))
	case err != nil:
		return err
	default:
		if err := s.deps.Users.RecordLogin(ctx, user.ID, time.Now(), &tokenHash); err != nil {
			s.logger.Warn("failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	return s.issueToken(c, http.StatusOK, user)
}

func (s *Server) handleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, toUserResponse(currentUser(c)))
}

func (s *Server) issueToken(c echo.Context, status int, user *models.User) error {
	token, expiresAt, err := s.deps.Tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user),
	})
}
