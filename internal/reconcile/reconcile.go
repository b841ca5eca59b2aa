// Package reconcile merges freshly fetched remote folder snapshots into the
// local cache without losing locally-only state, most importantly content
// that has already been decrypted on this device.
package reconcile

import (
	"context"
	"fmt"

	"github.com/quantamail/quantamail/internal/logging"
	"github.com/quantamail/quantamail/internal/remote"
	"github.com/quantamail/quantamail/internal/store"
	"github.com/quantamail/quantamail/internal/types"
)

// LastSyncKey is the settings key holding the timestamp of the last
// successful folder fetch.
const LastSyncKey = "last_sync"

// Result is the outcome of a pure merge.
type Result struct {
	// Merged holds one message per remote snapshot entry, with locally
	// decrypted content carried over where it exists.
	Merged []*types.Message
	// NewIDs lists message ids present remotely but absent locally, in
	// snapshot order.
	NewIDs []string
	// Preserved counts messages whose local decrypted content was kept.
	Preserved int
}

// Merge reconciles a remote snapshot against the local cache. It is a pure
// function: neither input slice is mutated and the returned messages are
// copies. For any message whose local copy is decrypted, the decrypted
// body, HTML and attachments win over the remote still-encrypted
// representation.
func Merge(local, remoteMsgs []*types.Message) *Result {
	byID := make(map[string]*types.Message, len(local))
	for _, m := range local {
		byID[m.ID] = m
	}

	res := &Result{Merged: make([]*types.Message, 0, len(remoteMsgs))}
	for _, rm := range remoteMsgs {
		merged := *rm
		prev, known := byID[rm.ID]
		if !known {
			res.NewIDs = append(res.NewIDs, rm.ID)
		} else if prev.IsDecrypted {
			merged.Body = prev.Body
			merged.BodyHTML = prev.BodyHTML
			merged.DecryptedBody = prev.DecryptedBody
			merged.DecryptedHTML = prev.DecryptedHTML
			merged.Attachments = prev.Attachments
			merged.EncryptedBody = prev.EncryptedBody
			merged.IsDecrypted = true
			merged.GloballyDecrypted = prev.GloballyDecrypted
			res.Preserved++
		}
		res.Merged = append(res.Merged, &merged)
	}
	return res
}

// Reconciler fetches remote snapshots and commits merged results to the
// store.
type Reconciler struct {
	store  *store.Store
	client remote.Client
	log    logging.Logger
}

// New returns a Reconciler over the given store and remote client.
func New(s *store.Store, client remote.Client, log logging.Logger) *Reconciler {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Reconciler{store: s, client: client, log: log}
}

// SyncFolder fetches a snapshot of folder, merges it against the local
// cache and commits the merged set in a single store transaction. A fetch
// or merge failure leaves the local cache untouched; a cancelled fetch is
// never partially merged.
func (r *Reconciler) SyncFolder(ctx context.Context, folder string, max int64) (*types.SyncSummary, error) {
	snapshot, err := r.client.FetchFolder(ctx, folder, max)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", folder, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, err := r.store.MessagesByFolder(folder, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("read local %s: %w", folder, err)
	}

	merged := Merge(local, snapshot)
	now := store.Now()
	for _, m := range merged.Merged {
		m.SyncedAt = now
		if m.SyncStatus == "" {
			m.SyncStatus = types.SyncStatusSynced
		}
	}

	if err := r.store.UpsertMessages(merged.Merged); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}
	if err := r.store.SetSetting(LastSyncKey, now); err != nil {
		return nil, fmt.Errorf("record last sync: %w", err)
	}

	r.log.Info(ctx, "folder reconciled",
		"folder", folder, "fetched", len(snapshot),
		"new", len(merged.NewIDs), "preserved", merged.Preserved)

	return &types.SyncSummary{
		Folder:    folder,
		Fetched:   len(snapshot),
		New:       len(merged.NewIDs),
		Preserved: merged.Preserved,
	}, nil
}
