package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantamail/quantamail/internal/types"
)

// newTestStore opens a store with the flush timer effectively disabled;
// tests that need on-disk state call Flush explicitly.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), SnapshotName), WithFlushWindow(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func msg(id, folder, date string) *types.Message {
	return &types.Message{
		ID:      id,
		From:    "sender@example.com",
		Subject: "subject " + id,
		Folder:  folder,
		Date:    date,
	}
}

func TestUpsertMessage_Idempotent(t *testing.T) {
	s := newTestStore(t)
	m := fullMessage()

	require.NoError(t, s.UpsertMessage(m))
	require.NoError(t, s.UpsertMessage(m))

	all, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	// modified_at is forced by the store; everything else round-trips.
	assert.NotEmpty(t, got.ModifiedAt)
	got.ModifiedAt = m.ModifiedAt
	assert.Equal(t, m, got)
}

func TestUpsertMessage_DoesNotTouchSyncedAt(t *testing.T) {
	s := newTestStore(t)
	m := fullMessage()
	m.SyncedAt = "2026-01-15T12:00:00Z"
	require.NoError(t, s.UpsertMessage(m))

	got, err := s.MessageByID(m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2026-01-15T12:00:00Z", got.SyncedAt)
}

func TestMessagesByFolder_OrderLimitOffset(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")))
	require.NoError(t, s.UpsertMessage(msg("b", types.FolderInbox, "2026-01-03T00:00:00Z")))
	require.NoError(t, s.UpsertMessage(msg("c", types.FolderInbox, "2026-01-02T00:00:00Z")))
	require.NoError(t, s.UpsertMessage(msg("d", types.FolderSent, "2026-01-04T00:00:00Z")))

	inbox, err := s.MessagesByFolder(types.FolderInbox, 0, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, "b", inbox[0].ID)
	assert.Equal(t, "c", inbox[1].ID)
	assert.Equal(t, "a", inbox[2].ID)

	page, err := s.MessagesByFolder(types.FolderInbox, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)

	all, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	empty, err := s.MessagesByFolder(types.FolderTrash, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPointLookups_NotFoundIsNotAnError(t *testing.T) {
	s := newTestStore(t)

	got, err := s.MessageByID("nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.MessageByFlowID("nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	m := fullMessage()
	require.NoError(t, s.UpsertMessage(m))

	got, err = s.MessageByFlowID(m.FlowID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
}

func TestUpdateMessage_AppliesPatchAndBumpsModified(t *testing.T) {
	s := newTestStore(t)
	m := msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")
	require.NoError(t, s.UpsertMessage(m))

	read := true
	folder := types.FolderTrash
	status := types.SyncStatusPendingUpload
	require.NoError(t, s.UpdateMessage("a", &types.MessagePatch{
		IsRead:     &read,
		Folder:     &folder,
		SyncStatus: &status,
	}))

	got, err := s.MessageByID("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsRead)
	assert.Equal(t, types.FolderTrash, got.Folder)
	assert.Equal(t, types.SyncStatusPendingUpload, got.SyncStatus)
	assert.NotEmpty(t, got.ModifiedAt)
	// untouched fields survive
	assert.Equal(t, "subject a", got.Subject)
}

func TestUpdateMessage_RejectsInvalidEnums(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")))

	bad := "attic"
	assert.Error(t, s.UpdateMessage("a", &types.MessagePatch{Folder: &bad}))
	assert.Error(t, s.UpdateMessage("a", &types.MessagePatch{SyncStatus: &bad}))
}

func TestDeleteMessage_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")))

	require.NoError(t, s.DeleteMessage("a"))
	require.NoError(t, s.DeleteMessage("a"))
	require.NoError(t, s.DeleteMessage("never-existed"))

	all, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCountsByFolder(t *testing.T) {
	s := newTestStore(t)

	counts, err := s.CountsByFolder()
	require.NoError(t, err)
	assert.Empty(t, counts)

	for i, id := range []string{"i1", "i2", "i3"} {
		m := msg(id, types.FolderInbox, "2026-01-01T00:00:00Z")
		m.IsRead = i == 0
		require.NoError(t, s.UpsertMessage(m))
	}
	require.NoError(t, s.UpsertMessage(msg("s1", types.FolderSent, "2026-01-01T00:00:00Z")))
	require.NoError(t, s.UpsertMessage(msg("s2", types.FolderSent, "2026-01-01T00:00:00Z")))

	counts, err = s.CountsByFolder()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{types.FolderInbox: 3, types.FolderSent: 2}, counts)

	unread, err := s.UnreadCountsByFolder()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{types.FolderInbox: 2, types.FolderSent: 2}, unread)
}

func TestSearchMessages_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	m := msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")
	m.Subject = "Quantum update"
	require.NoError(t, s.UpsertMessage(m))

	hits, err := s.SearchMessages("QUANTUM", "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestSearchMessages_EmptyQueryMatchesNothing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(msg("a", types.FolderInbox, "2026-01-01T00:00:00Z")))

	hits, err := s.SearchMessages("", "")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.SearchMessages("   ", "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchMessages_ScopesAndFields(t *testing.T) {
	s := newTestStore(t)

	a := msg("a", types.FolderInbox, "2026-01-02T00:00:00Z")
	a.Body = "meeting about the rollout"
	b := msg("b", types.FolderSent, "2026-01-01T00:00:00Z")
	b.FromName = "Rollout Bot"
	require.NoError(t, s.UpsertMessage(a))
	require.NoError(t, s.UpsertMessage(b))

	hits, err := s.SearchMessages("rollout", "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID) // newest first

	hits, err = s.SearchMessages("rollout", types.FolderSent)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	// LIKE metacharacters are literal.
	hits, err = s.SearchMessages("100%", "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.Setting("last_sync")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting("last_sync", "2026-02-01T00:00:00Z"))
	require.NoError(t, s.SetSetting("last_sync", "2026-02-02T00:00:00Z"))

	v, err = s.Setting("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-02T00:00:00Z", v)
}

func TestWipeAll(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(fullMessage()))
	_, err := s.Enqueue(types.OpMarkRead, "msg-1", "")
	require.NoError(t, err)
	require.NoError(t, s.CacheDecryption(&types.DecryptionResult{MessageID: "msg-1", Body: "secret"}))
	require.NoError(t, s.SetSetting("last_sync", "2026-02-01T00:00:00Z"))

	require.NoError(t, s.WipeAll())

	all, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := s.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := s.CachedDecryption("msg-1")
	require.NoError(t, err)
	assert.Nil(t, res)

	v, err := s.Setting("last_sync")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestOperationsAfterClose_ReturnStoreUnavailable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.UpsertMessage(fullMessage()), ErrStoreUnavailable)
	_, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = s.Enqueue(types.OpDelete, "x", "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = s.CachedDecryption("x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, s.WipeAll(), ErrStoreUnavailable)
	assert.ErrorIs(t, s.Flush(), ErrStoreUnavailable)
}

func TestSnapshot_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), SnapshotName)

	s, err := Open(path, WithFlushWindow(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.UpsertMessage(fullMessage()))
	_, err = s.Enqueue(types.OpMarkRead, "msg-1", "")
	require.NoError(t, err)
	require.NoError(t, s.SetSetting("last_sync", "2026-02-01T00:00:00Z"))
	require.NoError(t, s.Close()) // final synchronous flush

	reopened, err := Open(path, WithFlushWindow(time.Hour))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.MessageByID("msg-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Quantum update", got.Subject)
	assert.Equal(t, "secret", got.DecryptedBody)

	n, err := reopened.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := reopened.Setting("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00Z", v)
}

func TestSnapshot_DebouncedFlushCoalescesMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), SnapshotName)

	s, err := Open(path, WithFlushWindow(80*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.UpsertMessage(msg("m", types.FolderInbox, "2026-01-01T00:00:00Z")))
	}

	// Nothing on disk while the burst is still inside the window.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSnapshot_CorruptFileSetAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), SnapshotName)
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o644))

	s, err := Open(path, WithFlushWindow(time.Hour))
	require.NoError(t, err)
	defer s.Close()

	all, err := s.MessagesByFolder(types.FolderAll, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, statErr := os.Stat(path + ".corrupt")
	assert.NoError(t, statErr)
}
