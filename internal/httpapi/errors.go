package httpapi

import (
	"errors"
	"net/http"

	"github.com/gitzenhq/gitzen/internal/auth"
	"github.com/gitzenhq/gitzen/internal/ingest"
	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// classify maps domain errors onto HTTP statuses. Unrecognized errors
// are internal.
func classify(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, ingest.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrOAuthStateMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrDuplicateRule), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler is the terminal error path. Every message goes through
// the redactor; internal errors are replaced by a generic message unless
// debug mode is on, and the redacted original goes to the server log
// either way.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := classify(err)

	var msg string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
	} else {
		msg = err.Error()
	}
	msg = privacy.Redact(msg)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.Int("status", status),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("error", msg))
		if !s.debug {
			msg = "internal server error"
		}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorBody{Error: msg})
	}
	if writeErr != nil {
		s.logger.Error("failed to write error response", zap.Error(writeErr))
	}
}
