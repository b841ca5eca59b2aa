package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
)

var (
	searchFolder string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search messages by subject, sender, or body text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		msgs, err := st.SearchMessages(query, searchFolder)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if searchLimit > 0 && len(msgs) > searchLimit {
			msgs = msgs[:searchLimit]
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msgs)
		}

		if len(msgs) == 0 {
			fmt.Printf("No messages match %q.\n", query)
			return nil
		}

		display.Header(fmt.Sprintf("Results for %q (%d)", query, len(msgs)))
		for _, m := range msgs {
			display.MessageLine(m)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "Restrict to one folder")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}
