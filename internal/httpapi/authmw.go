package httpapi

import (
	"net/http"
	"strings"

	"github.com/gitzenhq/gitzen/internal/models"
	"github.com/labstack/echo/v4"
)

const userContextKey = "gitzen.user"

// requireAuth extracts the bearer token, verifies it, and loads the
// account. Inactive and deleted accounts are rejected even with a valid
// token.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		userID, err := s.deps.Tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := s.deps.Users.GetByID(c.Request().Context(), userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown account")
		}
		if !user.IsActive {
			return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// currentUser returns the account set by requireAuth.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
