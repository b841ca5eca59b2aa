package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
	"github.com/quantamail/quantamail/internal/types"
)

var (
	inboxFolder string
	inboxLimit  int
	inboxOffset int
	inboxUnread bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List messages in a folder, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inboxFolder != types.FolderAll && !types.IsValidFolder(inboxFolder) {
			return fmt.Errorf("unknown folder %q", inboxFolder)
		}

		msgs, err := st.MessagesByFolder(inboxFolder, inboxLimit, inboxOffset)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		if inboxUnread {
			filtered := msgs[:0]
			for _, m := range msgs {
				if !m.IsRead {
					filtered = append(filtered, m)
				}
			}
			msgs = filtered
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msgs)
		}

		if len(msgs) == 0 {
			fmt.Printf("%s is empty.\n", display.FolderLabel(inboxFolder))
			return nil
		}

		display.Header(fmt.Sprintf("%s (%d)", display.FolderLabel(inboxFolder), len(msgs)))
		for _, m := range msgs {
			display.MessageLine(m)
		}
		return nil
	},
}

func init() {
	inboxCmd.Flags().StringVar(&inboxFolder, "folder", types.FolderInbox, "Folder to list (inbox, sent, drafts, trash, all)")
	inboxCmd.Flags().IntVar(&inboxLimit, "limit", 50, "Maximum messages to list")
	inboxCmd.Flags().IntVar(&inboxOffset, "offset", 0, "Skip this many messages")
	inboxCmd.Flags().BoolVar(&inboxUnread, "unread", false, "Only unread messages")
	rootCmd.AddCommand(inboxCmd)
}
