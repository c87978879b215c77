package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/sitemap"
)

// newDiscoverCmd creates the 'discover' subcommand: run C7 without
// crawling, printing which dates carry a sitemap.
func newDiscoverCmd() *cobra.Command {
	var strategy, startStr, endStr string
	var recentDays int
	var allowFallback bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover which dates in the portal's sitemap carry content",
		Long: `Runs one of the three C7 discovery strategies against the portal
without downloading any documents: range (bounded by --start/--end),
recent (sampling the last --recent-days), or full-range (binary-search
the entire history).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}

			fetcher := buildFetcher(rt.cfg, rt.logger)
			discoverer := buildDiscoverer(rt.cfg, fetcher, rt.logger)
			timeout := time.Duration(rt.cfg.Bulk.DiscoveryTimeoutHours) * time.Hour

			var result sitemap.DiscoveryResult
			switch strategy {
			case "range":
				start, end, perr := parseRange(startStr, endStr)
				if perr != nil {
					return perr
				}
				result, err = discoverer.RangeDiscovery(cmd.Context(), start, end, timeout)
			case "recent":
				result, err = discoverer.RecentDiscovery(cmd.Context(), recentDays, allowFallback, timeout)
			case "full":
				result, err = discoverer.FullRangeDiscovery(cmd.Context(), timeout)
			default:
				return fmt.Errorf("unrecognized --strategy %q (want range|recent|full)", strategy)
			}
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}

			rt.logger.Info("discovery complete",
				zap.String("strategy", strategy),
				zap.Int("available", len(result.AvailableDates)),
				zap.Int("failed", len(result.FailedDates)),
				zap.Int("total_checked", result.TotalChecked),
				zap.Duration("duration", result.Duration),
			)
			for _, d := range result.AvailableDates {
				fmt.Println(d.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "range", "discovery strategy: range|recent|full")
	cmd.Flags().StringVar(&startStr, "start", "", "range start date, YYYY-MM-DD (strategy=range)")
	cmd.Flags().StringVar(&endStr, "end", "", "range end date, YYYY-MM-DD (strategy=range)")
	cmd.Flags().IntVar(&recentDays, "recent-days", 7, "days back to sample (strategy=recent)")
	cmd.Flags().BoolVar(&allowFallback, "allow-fallback", true, "fall back to a full range scan if sampling finds nothing (strategy=recent)")
	return cmd
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--start and --end are required for strategy=range")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --end: %w", err)
	}
	return start, end, nil
}
