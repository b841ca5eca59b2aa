package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt MESSAGE_ID...",
	Short: "Request decryption of encrypted messages",
	Long: `Queue decryption for the given messages. Previously decrypted
messages are unlocked immediately from the local cache; the rest are
decrypted on the next sync.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := box.RequestDecryption(cmd.Context(), id); err != nil {
				return fmt.Errorf("decrypt %s: %w", id, err)
			}
		}
		if !quietFlag {
			display.SuccessMsg("Decryption requested for %d message(s)", len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)
}
