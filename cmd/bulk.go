package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/bulk"
)

// newBulkCmd creates the 'bulk' subcommand group wrapping C11's campaign
// lifecycle: start, pause, resume, cancel, status, list.
func newBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Manage multi-date bulk crawl campaigns",
	}
	cmd.AddCommand(newBulkStartCmd())
	cmd.AddCommand(newBulkLatchCmd("pause", "Request a running campaign pause at its next date boundary",
		func(c *bulk.Coordinator, cmd *cobra.Command, id string) error { return c.Pause(cmd.Context(), id) }))
	cmd.AddCommand(newBulkLatchCmd("resume", "Resume a paused campaign",
		func(c *bulk.Coordinator, cmd *cobra.Command, id string) error { return c.Resume(cmd.Context(), id) }))
	cmd.AddCommand(newBulkLatchCmd("cancel", "Cancel a running or paused campaign",
		func(c *bulk.Coordinator, cmd *cobra.Command, id string) error { return c.Cancel(cmd.Context(), id) }))
	cmd.AddCommand(newBulkStatusCmd())
	cmd.AddCommand(newBulkListCmd())
	return cmd
}

func newBulkStartCmd() *cobra.Command {
	var full bool
	var startStr, endStr string
	var rateLimitMs, maxConcurrentDownloads int
	var forceUpdate bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new bulk crawl campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}

			req := bulk.StartRequest{
				Full:                   full,
				RateLimitMs:            rateLimitMs,
				MaxConcurrentDownloads: maxConcurrentDownloads,
				ForceUpdate:            forceUpdate,
			}
			if !full {
				start, end, perr := parseRange(startStr, endStr)
				if perr != nil {
					return perr
				}
				req.Start, req.End = start, end
			}

			coord, closeAll, err := buildCoordinator(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer closeAll()

			id, err := coord.Start(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("start campaign: %w", err)
			}

			rt.logger.Info("bulk campaign started", zap.String("operation_id", id))
			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "run full-range discovery instead of a bounded range")
	cmd.Flags().StringVar(&startStr, "start", "", "range start date, YYYY-MM-DD (required unless --full)")
	cmd.Flags().StringVar(&endStr, "end", "", "range end date, YYYY-MM-DD (required unless --full)")
	cmd.Flags().IntVar(&rateLimitMs, "rate-limit-ms", 500, "delay between requests within the campaign")
	cmd.Flags().IntVar(&maxConcurrentDownloads, "max-concurrent-downloads", 1, "concurrent document downloads within the campaign")
	cmd.Flags().BoolVar(&forceUpdate, "force", false, "re-download documents already DOWNLOADED or PROCESSED")
	return cmd
}

// newBulkLatchCmd builds a `bulk <use> <operation-id>` subcommand around one
// of the coordinator's write-once latch methods (Pause/Resume/Cancel);
// starting a coordinator just to flip a latch still needs a live Postgres
// pool since the latch is read-modify-write against the persisted row.
func newBulkLatchCmd(use, short string, call func(*bulk.Coordinator, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <operation-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}
			coord, closeAll, err := buildCoordinator(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer closeAll()

			if err := call(coord, cmd, args[0]); err != nil {
				return fmt.Errorf("%s campaign %s: %w", use, args[0], err)
			}
			rt.logger.Info("bulk campaign "+use+" requested", zap.String("operation_id", args[0]))
			return nil
		},
	}
}

func newBulkStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <operation-id>",
		Short: "Show a campaign's current progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}
			coord, closeAll, err := buildCoordinator(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer closeAll()

			progress, err := coord.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get campaign %s: %w", args[0], err)
			}
			printProgress(progress)
			return nil
		},
	}
}

func newBulkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every non-terminal campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}
			coord, closeAll, err := buildCoordinator(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer closeAll()

			active, err := coord.ListActive(cmd.Context())
			if err != nil {
				return fmt.Errorf("list active campaigns: %w", err)
			}
			for _, progress := range active {
				printProgress(progress)
			}
			return nil
		},
	}
}

func printProgress(p bulk.Progress) {
	fmt.Printf("%s\t%s\t%s\tdates=%d/%d\tdocs_ok=%d\tdocs_failed=%d\tphase=%s\n",
		p.OperationID, p.Status, p.StartDate.Format("2006-01-02"),
		p.DatesProcessed, p.TotalDatesDiscovered, p.DocumentsSucceeded, p.DocumentsFailed, p.CurrentPhase)
}
