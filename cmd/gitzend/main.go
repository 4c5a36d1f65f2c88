// Package main implements the gitzend daemon CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gitzend",
	Short: "gitzen backend daemon",
	Long: `gitzend serves the gitzen REST API: users, repositories, scans,
leaked-secret findings and false-positive suppression rules.

Raw secrets never persist: the ingestion boundary stores SHA-256 digests
only, and every response and log line passes through the redaction layer.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (environment variables override it)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show detailed version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gitzend %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildDate)
	},
}
