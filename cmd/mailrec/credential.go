package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-reconciler/internal/credential"
)

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the IMAP password in the system keyring",
	}
	cmd.AddCommand(newCredentialSetCmd(), newCredentialDeleteCmd())
	return cmd
}

func newCredentialSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Read the IMAP password from stdin and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "IMAP password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return fmt.Errorf("empty password")
			}

			if err := credential.Set(credential.KeyIMAPPassword, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password stored")
			return nil
		},
	}
}

func newCredentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the IMAP password from the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := credential.Delete(credential.KeyIMAPPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password removed")
			return nil
		},
	}
}
