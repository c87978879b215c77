package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mjochum64/law-crawler-service/internal/validation"
)

// newValidateCmd creates the 'validate' subcommand: run C1-C3 (sanitize,
// structural check, ECLI extraction) over a local XML file without
// touching the store or the network.
func newValidateCmd() *cobra.Command {
	var quick bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a legal document XML file against the C1-C3 pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromContext(cmd.Context())
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			opts := validationOptions(rt.cfg, rt.logger)
			var report validation.Report
			if quick {
				report = validation.QuickValidate(raw, opts)
			} else {
				report = validation.Validate(raw, opts)
			}

			fmt.Printf("valid=%t document_type=%s element_count=%d ecli=%v\n",
				report.Valid, report.DocumentType, report.ElementCount, report.ECLIIdentifiers)
			for _, w := range report.Warnings {
				fmt.Println("warning:", w)
			}
			for _, e := range report.Errors {
				fmt.Println("error:", e)
			}
			if !report.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false, "run the lighter-weight quick-validate pass instead of the full pipeline")
	return cmd
}
