package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration against the table file",
		Long: `check loads the config, reports the table's column layout, and verifies
that every configured column resolves, without touching the mailbox.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Check()
		},
	}
}
