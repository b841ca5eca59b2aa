package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
	"github.com/quantamail/quantamail/internal/mailbox"
)

var (
	draftTo      string
	draftSubject string
	draftBody    string
	draftStdin   bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Create a draft and queue it for upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		if draftTo == "" {
			return fmt.Errorf("--to is required")
		}

		body := draftBody
		if draftStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read body from stdin: %w", err)
			}
			body = string(data)
		}

		msg, err := box.CreateDraft(cfg.Account, mailbox.Draft{
			To:      draftTo,
			Subject: draftSubject,
			Body:    body,
		})
		if err != nil {
			return fmt.Errorf("create draft: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msg)
		}
		if !quietFlag {
			display.SuccessMsg("Draft %s saved, will upload on next sync", msg.ID)
		}
		return nil
	},
}

func init() {
	draftCmd.Flags().StringVar(&draftTo, "to", "", "Recipient address")
	draftCmd.Flags().StringVar(&draftSubject, "subject", "", "Subject line")
	draftCmd.Flags().StringVar(&draftBody, "body", "", "Message body")
	draftCmd.Flags().BoolVar(&draftStdin, "stdin", false, "Read the body from stdin")
	rootCmd.AddCommand(draftCmd)
}
