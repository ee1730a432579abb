// Package commands implements the ingest CLI: crawling, chunk classification and indexing.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"studenthousing/cmd/ingest/ui"
	"studenthousing/internal/app"
	"studenthousing/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Feed the student housing assistant",
	Long: `Ingest crawls residence web sites into text chunks, classifies the chunks by topic
and indexes documents, listings and chunks into the configured vector index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		cfg = loaded
		logger = app.NewLogger(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		ui.Error("%v", err)
	}
	return err
}
