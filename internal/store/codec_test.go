package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantamail/quantamail/internal/types"
)

func fullMessage() *types.Message {
	return &types.Message{
		ID:                "msg-1",
		ThreadID:          "thr-1",
		RemoteID:          "<abc@mail.example>",
		From:              "alice@example.com",
		FromName:          "Alice",
		To:                "bob@example.com",
		Subject:           "Quantum update",
		Body:              "plain body",
		BodyHTML:          "<p>plain body</p>",
		EncryptedBody:     []byte{0x01, 0x02, 0x03},
		Snippet:           "plain bo...",
		Folder:            types.FolderInbox,
		IsRead:            true,
		IsStarred:         false,
		IsEncrypted:       true,
		IsDecrypted:       true,
		GloballyDecrypted: true,
		SecurityLevel:     3,
		FlowID:            "flow-42",
		Algorithm:         "kyber1024",
		QuantumEnhanced:   true,
		DecryptedBody:     "secret",
		DecryptedHTML:     "<p>secret</p>",
		Attachments:       `[{"name":"a.pdf","size":12}]`,
		Date:              "2026-02-01T10:00:00Z",
		SyncedAt:          "2026-02-01T10:05:00Z",
		ModifiedAt:        "2026-02-01T10:06:00Z",
		SyncStatus:        types.SyncStatusSynced,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	want := fullMessage()
	got, err := decodeMessage(encodeMessage(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCodec_RoundTripSparseMessage(t *testing.T) {
	want := &types.Message{
		ID:         "msg-2",
		From:       "carol@example.com",
		Subject:    "(no subject)",
		Date:       "2026-02-02T00:00:00Z",
		Folder:     types.FolderDrafts,
		SyncStatus: types.SyncStatusPendingUpload,
	}
	got, err := decodeMessage(encodeMessage(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncode_UnsetOptionalsBecomeNull(t *testing.T) {
	r := encodeMessage(&types.Message{ID: "m", From: "x@y.z", Subject: "s", Date: "2026-01-01T00:00:00Z"})
	assert.False(t, r.ThreadID.Valid)
	assert.False(t, r.Body.Valid)
	assert.False(t, r.FlowID.Valid)
	assert.False(t, r.SyncedAt.Valid)
	assert.Nil(t, r.EncryptedBody)
}

func TestEncode_DefaultsFolderAndStatus(t *testing.T) {
	r := encodeMessage(&types.Message{ID: "m", From: "x@y.z", Subject: "s", Date: "2026-01-01T00:00:00Z"})
	assert.Equal(t, types.FolderInbox, r.Folder)
	assert.Equal(t, types.SyncStatusSynced, r.SyncStatus)
}

func TestEncode_BooleansStoredAsInts(t *testing.T) {
	m := fullMessage()
	r := encodeMessage(m)
	assert.Equal(t, 1, r.IsRead)
	assert.Equal(t, 0, r.IsStarred)
	assert.Equal(t, 1, r.QuantumEnhanced)
}

func TestDecode_RejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*row)
	}{
		{"empty id", func(r *row) { r.ID = "" }},
		{"unknown folder", func(r *row) { r.Folder = "junk" }},
		{"unknown sync status", func(r *row) { r.SyncStatus = "weird" }},
		{"flag out of range", func(r *row) { r.IsRead = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := encodeMessage(fullMessage())
			tt.mutate(r)
			_, err := decodeMessage(r)
			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
		})
	}
}
