// Package mailbox is the function-call surface the UI layer uses. Each
// mutation applies to the local store immediately and, when the change must
// reach the mail service, appends a sync-queue entry instead of touching
// the network.
package mailbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/quantamail/quantamail/internal/logging"
	"github.com/quantamail/quantamail/internal/reconcile"
	"github.com/quantamail/quantamail/internal/store"
	"github.com/quantamail/quantamail/internal/types"
)

// Mailbox wraps the store with the read/star/move/draft/decrypt flows.
type Mailbox struct {
	store *store.Store
	log   logging.Logger
}

// New returns a Mailbox over the given store.
func New(s *store.Store, log logging.Logger) *Mailbox {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Mailbox{store: s, log: log}
}

// Store exposes the underlying store for read paths the UI calls directly.
func (m *Mailbox) Store() *store.Store {
	return m.store
}

// MarkRead sets the read flag locally and queues the change for upload.
func (m *Mailbox) MarkRead(id string, read bool) error {
	status := types.SyncStatusPendingUpload
	if err := m.store.UpdateMessage(id, &types.MessagePatch{
		IsRead:     &read,
		SyncStatus: &status,
	}); err != nil {
		return err
	}
	payload, _ := json.Marshal(map[string]bool{"read": read})
	_, err := m.store.Enqueue(types.OpMarkRead, id, string(payload))
	return err
}

// MarkStarred sets the starred flag locally and queues the change.
func (m *Mailbox) MarkStarred(id string, starred bool) error {
	status := types.SyncStatusPendingUpload
	if err := m.store.UpdateMessage(id, &types.MessagePatch{
		IsStarred:  &starred,
		SyncStatus: &status,
	}); err != nil {
		return err
	}
	payload, _ := json.Marshal(map[string]bool{"starred": starred})
	_, err := m.store.Enqueue(types.OpMarkStarred, id, string(payload))
	return err
}

// Move changes a message's folder locally and queues the change.
func (m *Mailbox) Move(id, folder string) error {
	if !types.IsValidFolder(folder) {
		return fmt.Errorf("move %s: invalid folder %q", id, folder)
	}
	status := types.SyncStatusPendingUpload
	if err := m.store.UpdateMessage(id, &types.MessagePatch{
		Folder:     &folder,
		SyncStatus: &status,
	}); err != nil {
		return err
	}
	payload, _ := json.Marshal(map[string]string{"folder": folder})
	_, err := m.store.Enqueue(types.OpUpdate, id, string(payload))
	return err
}

// Delete removes a message locally and queues the remote delete.
func (m *Mailbox) Delete(id string) error {
	if err := m.store.DeleteMessage(id); err != nil {
		return err
	}
	_, err := m.store.Enqueue(types.OpDelete, id, "")
	return err
}

// Draft is the caller-supplied content for a new local draft.
type Draft struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	BodyHTML string `json:"body_html,omitempty"`
}

// CreateDraft stores a new draft with a locally generated id and queues its
// creation remotely.
func (m *Mailbox) CreateDraft(from string, d Draft) (*types.Message, error) {
	msg := &types.Message{
		ID:         "draft-" + uuid.NewString(),
		From:       from,
		To:         d.To,
		Subject:    d.Subject,
		Body:       d.Body,
		BodyHTML:   d.BodyHTML,
		Folder:     types.FolderDrafts,
		IsRead:     true,
		Date:       store.Now(),
		SyncStatus: types.SyncStatusPendingUpload,
	}
	if err := m.store.UpsertMessage(msg); err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(d)
	if _, err := m.store.Enqueue(types.OpCreate, msg.ID, string(payload)); err != nil {
		return nil, err
	}
	return msg, nil
}

// RequestDecryption queues a decrypt operation for a message, unless its
// plaintext is already cached, in which case the cached content is applied
// immediately and no collaborator round trip happens.
func (m *Mailbox) RequestDecryption(ctx context.Context, id string) error {
	cached, err := m.store.CachedDecryption(id)
	if err != nil {
		return err
	}
	if cached != nil {
		m.log.Debug(ctx, "decryption served from cache", "message", id)
		return m.applyDecryption(cached)
	}
	_, err = m.store.Enqueue(types.OpDecrypt, id, "")
	return err
}

// StoreDecryption caches a decrypt collaborator result and marks the
// message decrypted. The cache write and message update make later fetches
// of the still-encrypted remote copy lossless.
func (m *Mailbox) StoreDecryption(res *types.DecryptionResult) error {
	if err := m.store.CacheDecryption(res); err != nil {
		return err
	}
	return m.applyDecryption(res)
}

func (m *Mailbox) applyDecryption(res *types.DecryptionResult) error {
	decrypted := true
	return m.store.UpdateMessage(res.MessageID, &types.MessagePatch{
		IsDecrypted:   &decrypted,
		Body:          &res.Body,
		BodyHTML:      &res.BodyHTML,
		DecryptedBody: &res.Body,
		DecryptedHTML: &res.BodyHTML,
	})
}

// Status is the error-adjacent state surfaced to the user: how much is
// waiting to sync and when the last successful fetch happened.
type Status struct {
	PendingOps int    `json:"pending_ops"`
	LastSync   string `json:"last_sync,omitempty"`
}

// SyncStatus reports the queue backlog and last-sync timestamp.
func (m *Mailbox) SyncStatus() (*Status, error) {
	n, err := m.store.PendingCount()
	if err != nil {
		return nil, err
	}
	last, err := m.store.Setting(reconcile.LastSyncKey)
	if err != nil {
		return nil, err
	}
	return &Status{PendingOps: n, LastSync: last}, nil
}
