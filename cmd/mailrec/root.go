package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-reconciler/internal/app"
	"github.com/nhle/mail-reconciler/internal/config"
	"github.com/nhle/mail-reconciler/internal/logging"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mailrec",
		Short: "Reconcile mailbox replies into a contact table",
		Long: `mailrec reads unseen mail, groups it into subject threads, extracts
structured fields from each message with a local LM Studio server, and
writes the results into the matching rows of a CSV contact table.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newCheckCmd(&configPath),
		newFindReplyCmd(&configPath),
		newRunsCmd(&configPath),
		newCredentialCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadApp builds the full pipeline from the config file. Commands that
// need only a slice of it (credential, runs) load what they need
// directly instead.
func loadApp(configPath string) (*app.App, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(cfg.Logging)
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, log, err
	}
	return a, log, nil
}
