package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gitzenhq/gitzen/internal/auth"
	"github.com/gitzenhq/gitzen/internal/config"
	"github.com/gitzenhq/gitzen/internal/httpapi"
	"github.com/gitzenhq/gitzen/internal/ingest"
	"github.com/gitzenhq/gitzen/internal/logging"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns, cfg.Database.MinConns,
		cfg.Database.MaxConnLifetime, cfg.Database.ConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	findings := store.NewFindingRepository(db)
	falsePositives := store.NewFalsePositiveRepository(db)

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	var oauth *auth.GitHubOAuth
	if cfg.GitHub.Enabled() {
		states := auth.NewStateStore(cfg.GitHub.StateTTL)
		defer states.Stop()
		oauth = auth.NewGitHubOAuth(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL, states)
		logger.Info("github oauth enabled")
	} else {
		logger.Info("github oauth not configured; email/password only")
	}

	server, err := httpapi.NewServer(cfg.Server, cfg.Debug, logger, httpapi.Deps{
		DB:             db,
		Users:          store.NewUserRepository(db),
		Repos:          store.NewRepoRepository(db),
		Scans:          store.NewScanRepository(db),
		Findings:       findings,
		FalsePositives: falsePositives,
		Stats:          store.NewStatsRepository(db),
		Ingest:         ingest.NewService(findings, falsePositives, nil, logger),
		Tokens:         tokens,
		OAuth:          oauth,
		BcryptCost:     cfg.Auth.BcryptCost,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
