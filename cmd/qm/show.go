package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var showKeepUnread bool

var showCmd = &cobra.Command{
	Use:   "show MESSAGE_ID",
	Short: "Display a single message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		msg, err := st.MessageByID(id)
		if err != nil {
			return fmt.Errorf("lookup message: %w", err)
		}
		if msg == nil {
			return fmt.Errorf("message %q not found", id)
		}

		if !msg.IsRead && !showKeepUnread {
			if err := box.MarkRead(id, true); err != nil {
				return fmt.Errorf("mark read: %w", err)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msg)
		}

		display.MessageDetail(msg)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showKeepUnread, "keep-unread", false, "Do not mark the message as read")
	rootCmd.AddCommand(showCmd)
}
