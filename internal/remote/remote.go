// Package remote defines the contracts the local core uses to talk to the
// outside world: the mail service and the decrypt collaborator. The core
// only exchanges plain data structures; serialization to any wire protocol
// lives behind these interfaces.
package remote

import (
	"context"

	"github.com/quantamail/quantamail/internal/types"
)

// Client is the remote mail service as seen by the core.
type Client interface {
	// FetchFolder downloads a snapshot of the given folder, at most max
	// messages, newest first. A partial download must return an error so
	// the caller never merges an incomplete snapshot.
	FetchFolder(ctx context.Context, folder string, max int64) ([]*types.Message, error)

	// Deliver applies one queued operation remotely. An error means the
	// operation may be retried; delivery must be idempotent on the remote
	// side for at-least-once semantics to hold.
	Deliver(ctx context.Context, entry *types.QueueEntry) error
}

// Decryptor produces plaintext for an encrypted message. The core never
// decrypts anything itself; it only caches what a Decryptor returns.
type Decryptor interface {
	Decrypt(ctx context.Context, msg *types.Message) (*types.DecryptionResult, error)
}
