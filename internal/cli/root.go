package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "splitlab",
	Short: "Splitlab - a self-hosted experimentation engine",
	Long: `Splitlab is a self-hosted A/B experimentation engine.
Single Go binary, embedded SQLite, deterministic variant assignment.

Running without a subcommand starts the server (same as 'splitlab serve').`,
	RunE: runServe, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("SL_DB_PATH", "./splitlab.db"), "database path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
