package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/metrics"
)

// newServeCmd creates the 'serve' subcommand: run the C12 scheduler loop
// in the foreground alongside a /metrics endpoint, until interrupted.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled daily/weekly/retry sweeps and serve /metrics",
		Long: `Starts the cron-driven daily, weekly, and retry-sweep jobs (C12) and
an HTTP server exposing Prometheus metrics at /metrics. Runs until
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}

			sched, closeRepo, err := buildScheduler(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeRepo(); cerr != nil {
					rt.logger.Warn("failed to close document store", zap.Error(cerr))
				}
			}()

			if err := sched.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				rt.logger.Info("metrics server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
					return
				}
				serveErr <- nil
			}()

			select {
			case <-ctx.Done():
				rt.logger.Info("shutdown signal received")
			case err := <-serveErr:
				if err != nil {
					rt.logger.Error("metrics server failed", zap.Error(err))
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.logger.Warn("metrics server shutdown error", zap.Error(err))
			}

			cronCtx := sched.Stop()
			<-cronCtx.Done()
			rt.logger.Info("scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to serve /metrics on")
	return cmd
}
