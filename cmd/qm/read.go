package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var readUndo bool

var readCmd = &cobra.Command{
	Use:   "read MESSAGE_ID...",
	Short: "Mark messages as read (or unread with --undo)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := box.MarkRead(id, !readUndo); err != nil {
				return fmt.Errorf("mark %s: %w", id, err)
			}
		}
		if !quietFlag {
			verb := "read"
			if readUndo {
				verb = "unread"
			}
			display.SuccessMsg("Marked %d message(s) %s", len(args), verb)
		}
		return nil
	},
}

func init() {
	readCmd.Flags().BoolVar(&readUndo, "undo", false, "Mark as unread instead")
	rootCmd.AddCommand(readCmd)
}
