package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantamail/quantamail/internal/remote"
	"github.com/quantamail/quantamail/internal/store"
	"github.com/quantamail/quantamail/internal/types"
)

func localDecrypted() *types.Message {
	return &types.Message{
		ID:            "a",
		From:          "alice@example.com",
		Subject:       "Quantum update",
		Body:          "secret",
		BodyHTML:      "<p>secret</p>",
		DecryptedBody: "secret",
		Attachments:   `[{"name":"keys.pdf"}]`,
		Folder:        types.FolderInbox,
		IsEncrypted:   true,
		IsDecrypted:   true,
		Date:          "2026-01-01T00:00:00Z",
	}
}

func remoteEncrypted() *types.Message {
	return &types.Message{
		ID:            "a",
		From:          "alice@example.com",
		Subject:       "Quantum update",
		EncryptedBody: []byte("cipherbytes"),
		Folder:        types.FolderInbox,
		IsEncrypted:   true,
		IsDecrypted:   false,
		Date:          "2026-01-01T00:00:00Z",
	}
}

func TestMerge_PreservesLocallyDecryptedContent(t *testing.T) {
	res := Merge([]*types.Message{localDecrypted()}, []*types.Message{remoteEncrypted()})

	require.Len(t, res.Merged, 1)
	got := res.Merged[0]
	assert.Equal(t, "secret", got.Body)
	assert.Equal(t, "<p>secret</p>", got.BodyHTML)
	assert.Equal(t, "secret", got.DecryptedBody)
	assert.Equal(t, `[{"name":"keys.pdf"}]`, got.Attachments)
	assert.True(t, got.IsDecrypted)
	assert.Equal(t, 1, res.Preserved)
	assert.Empty(t, res.NewIDs)
}

func TestMerge_FlagsNewArrivals(t *testing.T) {
	b := &types.Message{ID: "b", From: "bob@example.com", Subject: "hi",
		Folder: types.FolderInbox, Date: "2026-01-02T00:00:00Z"}

	res := Merge([]*types.Message{localDecrypted()}, []*types.Message{remoteEncrypted(), b})

	assert.Equal(t, []string{"b"}, res.NewIDs)
	require.Len(t, res.Merged, 2)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	local := []*types.Message{localDecrypted()}
	remoteMsgs := []*types.Message{remoteEncrypted()}

	Merge(local, remoteMsgs)

	assert.False(t, remoteMsgs[0].IsDecrypted, "remote input must stay untouched")
	assert.Equal(t, "secret", local[0].Body)
}

func TestMerge_UndecryptedLocalIsOverwritten(t *testing.T) {
	stale := remoteEncrypted()
	fresh := remoteEncrypted()
	fresh.Subject = "Quantum update (edited)"
	fresh.IsRead = true

	res := Merge([]*types.Message{stale}, []*types.Message{fresh})

	require.Len(t, res.Merged, 1)
	assert.Equal(t, "Quantum update (edited)", res.Merged[0].Subject)
	assert.Zero(t, res.Preserved)
}

// fakeClient serves canned snapshots or errors.
type fakeClient struct {
	snapshot []*types.Message
	err      error
}

func (f *fakeClient) FetchFolder(ctx context.Context, folder string, max int64) ([]*types.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeClient) Deliver(ctx context.Context, entry *types.QueueEntry) error {
	return errors.New("not used")
}

var _ remote.Client = (*fakeClient)(nil)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), store.SnapshotName),
		store.WithFlushWindow(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSyncFolder_CommitsMergeAndRecordsLastSync(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(localDecrypted()))

	b := &types.Message{ID: "b", From: "bob@example.com", Subject: "new mail",
		Folder: types.FolderInbox, Date: "2026-01-02T00:00:00Z"}
	r := New(s, &fakeClient{snapshot: []*types.Message{remoteEncrypted(), b}}, nil)

	summary, err := r.SyncFolder(context.Background(), types.FolderInbox, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Preserved)

	// New arrival is now readable locally.
	got, err := s.MessageByID("b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new mail", got.Subject)
	assert.NotEmpty(t, got.SyncedAt)

	// Decrypted content survived the still-encrypted remote copy.
	got, err = s.MessageByID("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret", got.Body)
	assert.True(t, got.IsDecrypted)

	last, err := s.Setting(LastSyncKey)
	require.NoError(t, err)
	assert.NotEmpty(t, last)
}

func TestSyncFolder_FetchFailureLeavesCacheUntouched(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpsertMessage(localDecrypted()))

	r := New(s, &fakeClient{err: errors.New("network down")}, nil)
	_, err := r.SyncFolder(context.Background(), types.FolderInbox, 100)
	require.Error(t, err)

	got, err := s.MessageByID("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret", got.Body)

	last, err := s.Setting(LastSyncKey)
	require.NoError(t, err)
	assert.Empty(t, last, "failed sync must not advance last_sync")
}

func TestSyncFolder_CancelledContextIsNotMerged(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &types.Message{ID: "b", From: "bob@example.com", Subject: "late",
		Folder: types.FolderInbox, Date: "2026-01-02T00:00:00Z"}
	r := New(s, &fakeClient{snapshot: []*types.Message{b}}, nil)

	_, err := r.SyncFolder(ctx, types.FolderInbox, 100)
	require.ErrorIs(t, err, context.Canceled)

	got, err := s.MessageByID("b")
	require.NoError(t, err)
	assert.Nil(t, got)
}
