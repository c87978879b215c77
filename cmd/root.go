// Package cmd defines and implements the CLI commands for the
// law-crawler-service executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/config"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/metrics"
)

var cfgFile string

// runtimeKeyType is the context key for the loaded config and logger.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime bundles the config and logger every subcommand needs; the
// heavier domain objects (store, orchestrator, coordinator, scheduler) are
// built lazily per-subcommand since each needs a different subset.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func runtimeFromContext(ctx context.Context) (runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(runtime)
	if !ok {
		return runtime{}, fmt.Errorf("runtime not initialized")
	}
	return rt, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "law-crawler",
		Short: "A polite, resumable crawler for a public legal-document portal.",
		Long: `law-crawler fetches, validates, and archives legal decisions published
on a court sitemap, either one date at a time or as a supervised bulk
campaign spanning a date range.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			metrics.Init()

			ctx := context.WithValue(cmd.Context(), runtimeKey, runtime{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := runtimeFromContext(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/law-crawler/, $HOME/.law-crawler)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newBulkCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
