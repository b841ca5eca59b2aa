package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var mvCmd = &cobra.Command{
	Use:   "mv MESSAGE_ID FOLDER",
	Short: "Move a message to another folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, folder := args[0], args[1]
		if err := box.Move(id, folder); err != nil {
			return fmt.Errorf("move %s: %w", id, err)
		}
		if !quietFlag {
			display.SuccessMsg("Moved %s to %s", id, display.FolderLabel(folder))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
