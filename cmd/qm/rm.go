package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var rmCmd = &cobra.Command{
	Use:   "rm MESSAGE_ID...",
	Short: "Delete messages locally and queue the remote deletion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := box.Delete(id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		if !quietFlag {
			display.SuccessMsg("Deleted %d message(s)", len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
