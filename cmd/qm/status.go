package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/display"
	"github.com/quantamail/quantamail/internal/types"
)

type statusOutput struct {
	Account    string         `json:"account,omitempty"`
	Folders    []folderStatus `json:"folders"`
	PendingOps int            `json:"pending_ops"`
	LastSync   string         `json:"last_sync,omitempty"`
}

type folderStatus struct {
	Folder string `json:"folder"`
	Total  int    `json:"total"`
	Unread int    `json:"unread"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Show mailbox overview: folder counts, queue backlog, last sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		totals, err := st.CountsByFolder()
		if err != nil {
			return fmt.Errorf("folder counts: %w", err)
		}
		unread, err := st.UnreadCountsByFolder()
		if err != nil {
			return fmt.Errorf("unread counts: %w", err)
		}
		sync, err := box.SyncStatus()
		if err != nil {
			return fmt.Errorf("sync status: %w", err)
		}

		out := statusOutput{
			Account:    cfg.Account,
			PendingOps: sync.PendingOps,
			LastSync:   sync.LastSync,
		}
		for _, folder := range []string{types.FolderInbox, types.FolderSent, types.FolderDrafts, types.FolderTrash} {
			out.Folders = append(out.Folders, folderStatus{
				Folder: folder,
				Total:  totals[folder],
				Unread: unread[folder],
			})
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		title := "Mailbox"
		if cfg.Account != "" {
			title = fmt.Sprintf("Mailbox (%s)", display.AccountLabel(cfg.Account))
		}
		display.Header(title)
		for _, f := range out.Folders {
			line := fmt.Sprintf("  %-8s %4d", display.FolderLabel(f.Folder), f.Total)
			if f.Unread > 0 {
				line += display.Bold.Render(fmt.Sprintf("  (%d unread)", f.Unread))
			}
			fmt.Println(line)
		}

		fmt.Println()
		if out.PendingOps > 0 {
			fmt.Printf("  %d operation(s) waiting to sync\n", out.PendingOps)
		} else {
			fmt.Println("  Fully synced.")
		}
		if out.LastSync != "" {
			display.SubHeader(fmt.Sprintf("  Last sync %s", display.TimeAgo(out.LastSync)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
