// Package cli holds the warcore command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warcore",
	Short: "Rules core of a turn-based strategy game",
	Long: `warcore runs the event-sourced game and unit aggregates.

Configuration is read from the environment and an optional .env file
(WARCORE_BACKEND, WARCORE_NATS_URL, WARCORE_LOG_FORMAT, ...).`,
	SilenceUsage: true,
}

var envFile string

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}
