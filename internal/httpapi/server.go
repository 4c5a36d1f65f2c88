// Package httpapi provides the REST API for gitzen.
//
// Every response body, including error handler output, is buffered by
// the privacy middleware and passed through the structural sanitizer
// before it leaves the process.
package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gitzenhq/gitzen/internal/auth"
	"github.com/gitzenhq/gitzen/internal/config"
	"github.com/gitzenhq/gitzen/internal/ingest"
	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps carries the collaborators the server needs.
type Deps struct {
	DB             *sql.DB
	Users          *store.UserRepository
	Repos          *store.RepoRepository
	Scans          *store.ScanRepository
	Findings       *store.FindingRepository
	FalsePositives *store.FalsePositiveRepository
	Stats          *store.StatsRepository
	Ingest         *ingest.Service
	Tokens         *auth.TokenManager
	OAuth          *auth.GitHubOAuth // nil when GitHub OAuth is not configured
	BcryptCost     int
}

// Server provides the REST endpoints.
type Server struct {
	echo      *echo.Echo
	cfg       config.ServerConfig
	debug     bool
	logger    *zap.Logger
	sanitizer *privacy.Sanitizer
	metrics   *HTTPMetrics
	deps      Deps
}

// NewServer wires middleware and routes.
func NewServer(cfg config.ServerConfig, debug bool, logger *zap.Logger, deps Deps) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil || deps.Findings == nil || deps.Ingest == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("incomplete server dependencies")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		debug:     debug,
		logger:    logger,
		sanitizer: privacy.NewSanitizer(nil),
		metrics:   NewHTTPMetrics(),
		deps:      deps,
	}

	e.HTTPErrorHandler = s.errorHandler

	// Order matters: the privacy middleware is innermost of the globals
	// so it resolves handler errors inside the buffer, while recover,
	// request id, logging and metrics observe the final outcome.
	e.Use(middleware.Recover())
	// Request ids are UUIDs like every other identifier, so the log
	// encoder's entropy guard recognizes and keeps them.
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger)
	e.Use(s.metrics.middleware)
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(s.privacyMiddleware)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	if s.deps.OAuth != nil {
		authGroup.GET("/github/login", s.handleGitHubLogin)
		authGroup.GET("/github/callback", s.handleGitHubCallback)
	}
	authGroup.GET("/me", s.handleMe, s.requireAuth)

	repos := v1.Group("/repositories", s.requireAuth)
	repos.POST("", s.handleCreateRepository)
	repos.GET("", s.handleListRepositories)
	repos.GET("/:id", s.handleGetRepository)
	repos.DELETE("/:id", s.handleDeleteRepository)
	repos.POST("/:id/scans", s.handleCreateScan)
	repos.GET("/:id/scans", s.handleListScans)

	scans := v1.Group("/scans", s.requireAuth)
	scans.GET("/:id", s.handleGetScan)
	scans.POST("/:id/start", s.handleStartScan)
	scans.POST("/:id/complete", s.handleCompleteScan)

	findings := v1.Group("/findings", s.requireAuth)
	findings.POST("", s.handleIngestFinding)
	findings.GET("", s.handleListFindings)
	findings.GET("/:id", s.handleGetFinding)
	findings.PATCH("/:id", s.handleUpdateFinding)
	findings.GET("/:id/related", s.handleRelatedFindings)

	fps := v1.Group("/false-positives", s.requireAuth)
	fps.POST("", s.handleCreateFalsePositive)
	fps.GET("", s.handleListFalsePositives)
	fps.DELETE("/:id", s.handleDeactivateFalsePositive)

	v1.GET("/statistics", s.handleStatistics, s.requireAuth)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))

	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo engine for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
