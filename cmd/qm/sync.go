package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/auth"
	"github.com/quantamail/quantamail/internal/display"
	"github.com/quantamail/quantamail/internal/reconcile"
	"github.com/quantamail/quantamail/internal/remote/gmailapi"
	"github.com/quantamail/quantamail/internal/syncer"
	"github.com/quantamail/quantamail/internal/types"
)

var (
	syncFolder   string
	syncPushOnly bool
	syncFetchMax int64
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a folder with the remote and drain the sync queue",
	Long: `Fetch the folder snapshot from the remote account, merge it with
local state (locally decrypted content is preserved), then deliver
queued offline operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !types.IsValidFolder(syncFolder) {
			return fmt.Errorf("unknown folder %q", syncFolder)
		}

		svc, err := auth.NewGmailService(ctx, cfg.ProfileDir)
		if err != nil {
			return fmt.Errorf("connect to account: %w", err)
		}
		client := gmailapi.New(svc, cfg.Account)

		sy := syncer.New(st, client, nil, logger, cfg.MaxAttempts)

		var summary *types.SyncSummary
		if syncPushOnly {
			res, err := sy.Drain(ctx, 0)
			if err != nil {
				return err
			}
			summary = &types.SyncSummary{
				Folder:    syncFolder,
				Delivered: res.Delivered,
				Failed:    res.Failed,
				Dropped:   res.Dropped,
			}
		} else {
			max := syncFetchMax
			if max <= 0 {
				max = cfg.FetchPageSize
			}
			rec := reconcile.New(st, client, logger)
			summary, err = sy.Run(ctx, rec, syncFolder, max)
			if err != nil {
				return err
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		if !quietFlag {
			display.SuccessMsg("Synced %s: %d fetched, %d new, %d delivered",
				summary.Folder, summary.Fetched, summary.New, summary.Delivered)
			if summary.Failed > 0 || summary.Dropped > 0 {
				display.ErrorMsg("%d operation(s) failed, %d dropped", summary.Failed, summary.Dropped)
			}
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncFolder, "folder", types.FolderInbox, "Folder to reconcile")
	syncCmd.Flags().BoolVar(&syncPushOnly, "push-only", false, "Only deliver queued operations, skip the fetch")
	syncCmd.Flags().Int64Var(&syncFetchMax, "max", 0, "Fetch at most this many messages (default: config fetch_page_size)")
	rootCmd.AddCommand(syncCmd)
}
