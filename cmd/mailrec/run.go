package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass over the inbox",
		Long: `run loads the contact table, fetches every unseen message matching the
configured subject filters, analyzes each thread, and writes the
extracted fields back. Interrupting the run still saves whatever was
already applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}
