package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/ledger"
)

func newRunsCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return fmt.Errorf("no ledger path configured in %s", *configPath)
			}

			led, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer led.Close()

			runs, err := led.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-19s  %-11s  %6s  %6s  %6s  %s\n",
				"STARTED", "OUTCOME", "EMAILS", "ROWS", "ERRORS", "ID")
			for _, r := range runs {
				fmt.Fprintf(out, "%-19s  %-11s  %6d  %6d  %6d  %s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Outcome, r.EmailsProcessed, r.RowUpdates, r.Errors, r.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
