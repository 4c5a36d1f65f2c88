package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// bodyRecorder buffers a response instead of writing it through, so the
// privacy middleware can rewrite the body before it leaves the process.
type bodyRecorder struct {
	http.ResponseWriter // headers pass through to the real writer
	status              int
	buf                 bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.buf.Write(b)
}

// Flush is a no-op; the buffered body is flushed once at the end.
func (r *bodyRecorder) Flush() {}

// privacyMiddleware is the response leg of the interception layer. It
// buffers every response; JSON bodies are decoded, passed through the
// structural sanitizer, and re-encoded. Non-JSON and undecodable bodies
// pass through byte for byte. Errors are resolved here, inside the
// buffer, so the error handler's output is sanitized too.
func (s *Server) privacyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		original := c.Response().Writer
		rec := &bodyRecorder{ResponseWriter: original}
		c.Response().Writer = rec

		if err := next(c); err != nil {
			c.Error(err)
		}

		c.Response().Writer = original

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		body := rec.buf.Bytes()
		contentType := c.Response().Header().Get(echo.HeaderContentType)
		if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) && len(body) > 0 {
			// Token issuance routes would lose their own access_token to
			// the key-name rule; they get content-pattern redaction only.
			patternOnly := tokenIssuanceRoutes[c.Path()]
			if sanitized, changed := sanitizeJSON(s.sanitizer, body, patternOnly); changed {
				body = sanitized
				s.metrics.responsesSanitized.Inc()
			}
		}

		if len(body) > 0 {
			c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(body)))
		}
		original.WriteHeader(status)
		if len(body) > 0 {
			if _, err := original.Write(body); err != nil {
				s.logger.Error("failed to write response", zap.Error(err))
			}
		}
		return nil
	}
}

// tokenIssuanceRoutes return a credential on purpose and are exempt from
// key-based redaction (content patterns still apply).
var tokenIssuanceRoutes = map[string]bool{
	"/api/v1/auth/register":        true,
	"/api/v1/auth/login":           true,
	"/api/v1/auth/github/callback": true,
}

// sanitizeJSON rewrites a JSON document through the structural
// sanitizer. The second return reports whether any byte changed.
// Undecodable input is returned unchanged.
func sanitizeJSON(sanitizer *privacy.Sanitizer, body []byte, patternOnly bool) ([]byte, bool) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return body, false
	}

	var sanitized any
	if patternOnly {
		sanitized = sanitizer.RedactStrings(doc)
	} else {
		sanitized = sanitizer.SanitizeValue(doc)
	}

	out, err := json.Marshal(sanitized)
	if err != nil {
		return body, false
	}
	if bytes.Equal(bytes.TrimSpace(body), out) {
		return body, false
	}
	return out, true
}

// requestLogger logs every request with redacted context. The URI is
// logged path-only; query strings can carry tokens.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start)

		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return err
	}
}
