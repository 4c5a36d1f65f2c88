package main

import (
	"fmt"

	"github.com/gitzenhq/gitzen/internal/config"
	"github.com/gitzenhq/gitzen/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long:  `Applies the embedded schema migrations to the configured PostgreSQL database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := cmd.Context()
		db, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns, cfg.Database.MinConns,
			cfg.Database.MaxConnLifetime, cfg.Database.ConnectTimeout)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		cmd.Println("migrations applied")
		return nil
	},
}
