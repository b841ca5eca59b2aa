package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var starUndo bool

var starCmd = &cobra.Command{
	Use:   "star MESSAGE_ID...",
	Short: "Star messages (or unstar with --undo)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := box.MarkStarred(id, !starUndo); err != nil {
				return fmt.Errorf("star %s: %w", id, err)
			}
		}
		if !quietFlag {
			verb := "Starred"
			if starUndo {
				verb = "Unstarred"
			}
			display.SuccessMsg("%s %d message(s)", verb, len(args))
		}
		return nil
	},
}

func init() {
	starCmd.Flags().BoolVar(&starUndo, "undo", false, "Remove the star instead")
	rootCmd.AddCommand(starCmd)
}
