// Package types defines core data structures for quantamail.
package types

// Message is the canonical stored representation of an email.
//
// Date, SyncedAt and ModifiedAt are ISO 8601 (RFC 3339) UTC strings; empty
// means unset. EncryptedBody carries the opaque ciphertext for messages that
// have not been decrypted yet.
type Message struct {
	ID                string `json:"id"`
	ThreadID          string `json:"thread_id,omitempty"`
	RemoteID          string `json:"remote_id,omitempty"`
	From              string `json:"from"`
	FromName          string `json:"from_name,omitempty"`
	To                string `json:"to,omitempty"`
	Subject           string `json:"subject"`
	Body              string `json:"body,omitempty"`
	BodyHTML          string `json:"body_html,omitempty"`
	EncryptedBody     []byte `json:"encrypted_body,omitempty"`
	Snippet           string `json:"snippet,omitempty"`
	Folder            string `json:"folder"`
	IsRead            bool   `json:"is_read"`
	IsStarred         bool   `json:"is_starred"`
	IsEncrypted       bool   `json:"is_encrypted"`
	IsDecrypted       bool   `json:"is_decrypted"`
	GloballyDecrypted bool   `json:"globally_decrypted"`
	SecurityLevel     int    `json:"security_level"`
	FlowID            string `json:"flow_id,omitempty"`
	Algorithm         string `json:"algorithm,omitempty"`
	QuantumEnhanced   bool   `json:"quantum_enhanced"`
	DecryptedBody     string `json:"decrypted_body,omitempty"`
	DecryptedHTML     string `json:"decrypted_html,omitempty"`
	Attachments       string `json:"attachments,omitempty"`
	Date              string `json:"date"`
	SyncedAt          string `json:"synced_at,omitempty"`
	ModifiedAt        string `json:"modified_at,omitempty"`
	SyncStatus        string `json:"sync_status"`
}

// MessagePatch is a sparse update applied to a stored message. Nil fields
// are left untouched. The field set is closed: a caller cannot name a
// column that does not exist.
type MessagePatch struct {
	Subject           *string
	Body              *string
	BodyHTML          *string
	Snippet           *string
	Folder            *string
	IsRead            *bool
	IsStarred         *bool
	IsDecrypted       *bool
	GloballyDecrypted *bool
	DecryptedBody     *string
	DecryptedHTML     *string
	Attachments       *string
	SyncedAt          *string
	SyncStatus        *string
}

// IsZero reports whether the patch changes nothing.
func (p *MessagePatch) IsZero() bool {
	return p == nil || *p == MessagePatch{}
}

// QueueEntry is one pending remote operation in the sync queue.
type QueueEntry struct {
	ID            int64  `json:"id"`
	Operation     string `json:"operation"`
	MessageID     string `json:"message_id"`
	Payload       string `json:"payload,omitempty"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"last_error,omitempty"`
	LastAttemptAt string `json:"last_attempt_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// DecryptionResult is the cached output of a successful decrypt operation.
type DecryptionResult struct {
	MessageID    string `json:"message_id"`
	FlowID       string `json:"flow_id,omitempty"`
	Body         string `json:"body,omitempty"`
	BodyHTML     string `json:"body_html,omitempty"`
	SecurityInfo string `json:"security_info,omitempty"`
	CachedAt     string `json:"cached_at"`
}

// Folder constants.
const (
	FolderInbox  = "inbox"
	FolderSent   = "sent"
	FolderDrafts = "drafts"
	FolderTrash  = "trash"
	FolderCustom = "custom"

	// FolderAll is a query pseudo-folder that bypasses folder filtering.
	// It is never stored on a message.
	FolderAll = "all"
)

// ValidFolders is the set of folders a message can live in.
var ValidFolders = []string{FolderInbox, FolderSent, FolderDrafts, FolderTrash, FolderCustom}

// IsValidFolder checks if a folder string is valid.
func IsValidFolder(f string) bool {
	for _, v := range ValidFolders {
		if v == f {
			return true
		}
	}
	return false
}

// Sync status constants.
const (
	SyncStatusSynced          = "synced"
	SyncStatusPendingUpload   = "pending_upload"
	SyncStatusPendingDownload = "pending_download"
	SyncStatusConflict        = "conflict"
)

// ValidSyncStatuses is the set of allowed sync status values.
var ValidSyncStatuses = []string{
	SyncStatusSynced, SyncStatusPendingUpload, SyncStatusPendingDownload, SyncStatusConflict,
}

// IsValidSyncStatus checks if a sync status string is valid.
func IsValidSyncStatus(s string) bool {
	for _, v := range ValidSyncStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Queue operation constants.
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpMarkRead    = "mark_read"
	OpMarkStarred = "mark_starred"
	OpDecrypt     = "decrypt"
)

// ValidOperations is the set of allowed queue operations.
var ValidOperations = []string{OpCreate, OpUpdate, OpDelete, OpMarkRead, OpMarkStarred, OpDecrypt}

// IsValidOperation checks if an operation string is valid.
func IsValidOperation(op string) bool {
	for _, v := range ValidOperations {
		if v == op {
			return true
		}
	}
	return false
}

// SyncSummary holds the result of reconciling one folder with the remote.
type SyncSummary struct {
	Folder    string `json:"folder"`
	Fetched   int    `json:"fetched"`
	New       int    `json:"new"`
	Preserved int    `json:"preserved"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Dropped   int    `json:"dropped"`
}
