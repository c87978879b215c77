package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand: run C10 for a single date.
func newCrawlCmd() *cobra.Command {
	var dateStr string
	var forceUpdate bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a single date's sitemap into the document store",
		Long: `Fetches the sitemap index for one date, walks its leaf sitemaps, and
downloads, validates, and persists every entry that isn't already
DOWNLOADED or PROCESSED (unless --force is set).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}

			date := time.Now().UTC().Truncate(24 * time.Hour)
			if dateStr != "" {
				date, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
			}

			orch, closeRepo, err := buildOrchestrator(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeRepo(); cerr != nil {
					rt.logger.Warn("failed to close document store", zap.Error(cerr))
				}
			}()

			summary, err := orch.Crawl(cmd.Context(), date, forceUpdate)
			if err != nil {
				return fmt.Errorf("crawl %s: %w", date.Format("2006-01-02"), err)
			}

			rt.logger.Info("crawl complete",
				zap.String("date", date.Format("2006-01-02")),
				zap.Int("new_docs", summary.NewDocs),
				zap.Int("updated_docs", summary.UpdatedDocs),
				zap.Int("failed_docs", summary.FailedDocs),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "date to crawl, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&forceUpdate, "force", false, "re-download documents already DOWNLOADED or PROCESSED")
	return cmd
}
