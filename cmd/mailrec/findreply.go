package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-reconciler/internal/model"
	"github.com/nhle/mail-reconciler/internal/normalize"
)

func newFindReplyCmd(configPath *string) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "find-reply <sent-item.json>",
		Short: "Search the inbox for the reply to one sent message",
		Long: `find-reply reads a JSON description of a previously sent message
(message_id, references, subject, to, date) and searches the inbox for
its reply: first by In-Reply-To header, then along the References
chain, and finally by sender and subject.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var item model.SentItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			item.To = normalize.Address(item.To)
			item.Subject = normalize.Subject(item.Subject)

			a, log, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := a.FindReply(cmd.Context(), item)
			if err != nil {
				return err
			}
			if msg == nil {
				log.Info().Str("message_id", item.MessageID).Msg("no reply found")
				return nil
			}

			if jsonOut {
				out, err := json.MarshalIndent(msg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reply uid=%d from=%s date=%s subject=%q\n",
				msg.UID, msg.From, msg.Date.Format("2006-01-02 15:04"), msg.Subject)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the reply as JSON")
	return cmd
}
