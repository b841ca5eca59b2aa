package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Erase all local mail data for this profile",
	Long: `Remove every message, queued operation, cached decryption, and
setting from the local store, then persist the empty state. Remote mail
is untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeForce {
			return fmt.Errorf("refusing to wipe without --force")
		}
		if err := st.WipeAll(); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
		if err := st.Flush(); err != nil {
			return fmt.Errorf("persist empty state: %w", err)
		}
		if !quietFlag {
			display.SuccessMsg("Local mail data erased")
		}
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Confirm the wipe")
	rootCmd.AddCommand(wipeCmd)
}
