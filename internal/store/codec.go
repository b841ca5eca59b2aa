package store

import (
	"database/sql"
	"fmt"

	"github.com/quantamail/quantamail/internal/types"
)

// DecodeError reports a malformed stored row. It usually means the snapshot
// is corrupt and the local cache needs to be rebuilt.
type DecodeError struct {
	ID    string
	Field string
	Value string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message %q: bad %s %q", e.ID, e.Field, e.Value)
}

// row mirrors the messages table. Optional text columns are nullable so the
// stored form keeps "no value" distinct from a present empty string.
type row struct {
	ID                string
	ThreadID          sql.NullString
	RemoteID          sql.NullString
	From              string
	FromName          sql.NullString
	To                sql.NullString
	Subject           string
	Body              sql.NullString
	BodyHTML          sql.NullString
	EncryptedBody     []byte
	Snippet           sql.NullString
	Folder            string
	IsRead            int
	IsStarred         int
	IsEncrypted       int
	IsDecrypted       int
	GloballyDecrypted int
	SecurityLevel     int
	FlowID            sql.NullString
	Algorithm         sql.NullString
	QuantumEnhanced   int
	DecryptedBody     sql.NullString
	DecryptedHTML     sql.NullString
	Attachments       sql.NullString
	Date              string
	SyncedAt          sql.NullString
	ModifiedAt        sql.NullString
	SyncStatus        string
}

// encodeMessage converts a message to its stored row form. Booleans become
// 0/1 and unset optional fields become NULL, never ''.
func encodeMessage(m *types.Message) *row {
	folder := m.Folder
	if folder == "" {
		folder = types.FolderInbox
	}
	status := m.SyncStatus
	if status == "" {
		status = types.SyncStatusSynced
	}
	return &row{
		ID:                m.ID,
		ThreadID:          nullStr(m.ThreadID),
		RemoteID:          nullStr(m.RemoteID),
		From:              m.From,
		FromName:          nullStr(m.FromName),
		To:                nullStr(m.To),
		Subject:           m.Subject,
		Body:              nullStr(m.Body),
		BodyHTML:          nullStr(m.BodyHTML),
		EncryptedBody:     m.EncryptedBody,
		Snippet:           nullStr(m.Snippet),
		Folder:            folder,
		IsRead:            boolInt(m.IsRead),
		IsStarred:         boolInt(m.IsStarred),
		IsEncrypted:       boolInt(m.IsEncrypted),
		IsDecrypted:       boolInt(m.IsDecrypted),
		GloballyDecrypted: boolInt(m.GloballyDecrypted),
		SecurityLevel:     m.SecurityLevel,
		FlowID:            nullStr(m.FlowID),
		Algorithm:         nullStr(m.Algorithm),
		QuantumEnhanced:   boolInt(m.QuantumEnhanced),
		DecryptedBody:     nullStr(m.DecryptedBody),
		DecryptedHTML:     nullStr(m.DecryptedHTML),
		Attachments:       nullStr(m.Attachments),
		Date:              m.Date,
		SyncedAt:          nullStr(m.SyncedAt),
		ModifiedAt:        nullStr(m.ModifiedAt),
		SyncStatus:        status,
	}
}

// decodeMessage converts a stored row back to a message. Flag columns must
// be 0 or 1 and enum columns must hold known values; anything else is a
// DecodeError.
func decodeMessage(r *row) (*types.Message, error) {
	if r.ID == "" {
		return nil, &DecodeError{ID: r.ID, Field: "id", Value: ""}
	}
	if !types.IsValidFolder(r.Folder) {
		return nil, &DecodeError{ID: r.ID, Field: "folder", Value: r.Folder}
	}
	if !types.IsValidSyncStatus(r.SyncStatus) {
		return nil, &DecodeError{ID: r.ID, Field: "sync_status", Value: r.SyncStatus}
	}
	for _, f := range []struct {
		name string
		val  int
	}{
		{"is_read", r.IsRead},
		{"is_starred", r.IsStarred},
		{"is_encrypted", r.IsEncrypted},
		{"is_decrypted", r.IsDecrypted},
		{"globally_decrypted", r.GloballyDecrypted},
		{"quantum_enhanced", r.QuantumEnhanced},
	} {
		if f.val != 0 && f.val != 1 {
			return nil, &DecodeError{ID: r.ID, Field: f.name, Value: fmt.Sprint(f.val)}
		}
	}
	return &types.Message{
		ID:                r.ID,
		ThreadID:          r.ThreadID.String,
		RemoteID:          r.RemoteID.String,
		From:              r.From,
		FromName:          r.FromName.String,
		To:                r.To.String,
		Subject:           r.Subject,
		Body:              r.Body.String,
		BodyHTML:          r.BodyHTML.String,
		EncryptedBody:     r.EncryptedBody,
		Snippet:           r.Snippet.String,
		Folder:            r.Folder,
		IsRead:            r.IsRead == 1,
		IsStarred:         r.IsStarred == 1,
		IsEncrypted:       r.IsEncrypted == 1,
		IsDecrypted:       r.IsDecrypted == 1,
		GloballyDecrypted: r.GloballyDecrypted == 1,
		SecurityLevel:     r.SecurityLevel,
		FlowID:            r.FlowID.String,
		Algorithm:         r.Algorithm.String,
		QuantumEnhanced:   r.QuantumEnhanced == 1,
		DecryptedBody:     r.DecryptedBody.String,
		DecryptedHTML:     r.DecryptedHTML.String,
		Attachments:       r.Attachments.String,
		Date:              r.Date,
		SyncedAt:          r.SyncedAt.String,
		ModifiedAt:        r.ModifiedAt.String,
		SyncStatus:        r.SyncStatus,
	}, nil
}

// messageColumns is the column list matching row field order. Keep in sync
// with scanMessage and the INSERT in UpsertMessage.
const messageColumns = `id, thread_id, remote_id, from_addr, from_name, to_addr, subject,
	body, body_html, body_encrypted, snippet, folder,
	is_read, is_starred, is_encrypted, is_decrypted, globally_decrypted,
	security_level, flow_id, algorithm, quantum_enhanced,
	decrypted_body, decrypted_html, attachments,
	date, synced_at, modified_at, sync_status`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*types.Message, error) {
	var r row
	err := s.Scan(
		&r.ID, &r.ThreadID, &r.RemoteID, &r.From, &r.FromName, &r.To, &r.Subject,
		&r.Body, &r.BodyHTML, &r.EncryptedBody, &r.Snippet, &r.Folder,
		&r.IsRead, &r.IsStarred, &r.IsEncrypted, &r.IsDecrypted, &r.GloballyDecrypted,
		&r.SecurityLevel, &r.FlowID, &r.Algorithm, &r.QuantumEnhanced,
		&r.DecryptedBody, &r.DecryptedHTML, &r.Attachments,
		&r.Date, &r.SyncedAt, &r.ModifiedAt, &r.SyncStatus,
	)
	if err != nil {
		return nil, err
	}
	return decodeMessage(&r)
}

func (r *row) args() []any {
	return []any{
		r.ID, r.ThreadID, r.RemoteID, r.From, r.FromName, r.To, r.Subject,
		r.Body, r.BodyHTML, r.EncryptedBody, r.Snippet, r.Folder,
		r.IsRead, r.IsStarred, r.IsEncrypted, r.IsDecrypted, r.GloballyDecrypted,
		r.SecurityLevel, r.FlowID, r.Algorithm, r.QuantumEnhanced,
		r.DecryptedBody, r.DecryptedHTML, r.Attachments,
		r.Date, r.SyncedAt, r.ModifiedAt, r.SyncStatus,
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
