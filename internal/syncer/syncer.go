// Package syncer drains the sync queue against the remote mail service and
// the decrypt collaborator.
//
// The queue itself never drops an entry; retry pacing, backoff and the
// decision to give up all live here. Delivery is at-least-once: an entry is
// removed only after a confirmed success or an explicit, logged give-up.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantamail/quantamail/internal/logging"
	"github.com/quantamail/quantamail/internal/reconcile"
	"github.com/quantamail/quantamail/internal/remote"
	"github.com/quantamail/quantamail/internal/store"
	"github.com/quantamail/quantamail/internal/types"
)

// Defaults for the retry policy.
const (
	DefaultMaxAttempts = 8
	backoffBase        = time.Second
	backoffCap         = 5 * time.Minute
)

// errNoDecryptor marks decrypt entries that cannot run because no decrypt
// collaborator is configured. They wait in the queue, they never fail.
var errNoDecryptor = errors.New("no decrypt collaborator configured")

// Result summarizes one Drain pass.
type Result struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Waiting   int `json:"waiting"`
}

// Syncer consumes the sync queue.
type Syncer struct {
	store       *store.Store
	client      remote.Client
	decryptor   remote.Decryptor
	log         logging.Logger
	maxAttempts int
	now         func() time.Time
}

// New returns a Syncer. decryptor may be nil when no decrypt collaborator
// is available; decrypt entries then stay queued. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func New(s *store.Store, client remote.Client, decryptor remote.Decryptor,
	log logging.Logger, maxAttempts int) *Syncer {
	if log == nil {
		log = logging.NopLogger{}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Syncer{
		store:       s,
		client:      client,
		decryptor:   decryptor,
		log:         log,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Drain processes up to limit pending entries in queue order. Entries still
// inside their backoff window, and decrypt entries waiting for a
// collaborator, are skipped and counted as waiting. Returns early on
// context cancellation with the partial result.
func (s *Syncer) Drain(ctx context.Context, limit int) (*Result, error) {
	entries, err := s.store.TakePending(limit)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !s.eligible(entry) {
			res.Waiting++
			continue
		}

		if err := s.process(ctx, entry); err != nil {
			if errors.Is(err, errNoDecryptor) {
				res.Waiting++
				continue
			}
			if entry.Attempts+1 >= s.maxAttempts {
				// Explicit give-up: the queue never drops entries on its
				// own, so the dead-letter decision is made (and logged)
				// here.
				s.log.Error(ctx, "giving up on queue entry",
					"entry", entry.ID, "op", entry.Operation,
					"message", entry.MessageID, "attempts", entry.Attempts+1, "err", err)
				if dErr := s.store.Discard(entry.ID); dErr != nil {
					return res, dErr
				}
				res.Dropped++
				continue
			}
			if mErr := s.store.MarkFailed(entry.ID, err.Error()); mErr != nil {
				return res, mErr
			}
			res.Failed++
			continue
		}

		if err := s.store.MarkSucceeded(entry.ID); err != nil {
			return res, err
		}
		res.Delivered++
	}
	return res, nil
}

// eligible applies exponential backoff keyed on the attempt counter:
// 2^attempts seconds since the last attempt, capped at five minutes.
func (s *Syncer) eligible(entry *types.QueueEntry) bool {
	if entry.Attempts == 0 || entry.LastAttemptAt == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, entry.LastAttemptAt)
	if err != nil {
		return true
	}
	delay := backoffBase << min(entry.Attempts, 30)
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	return !s.now().Before(last.Add(delay))
}

func (s *Syncer) process(ctx context.Context, entry *types.QueueEntry) error {
	if entry.Operation == types.OpDecrypt {
		return s.decrypt(ctx, entry)
	}
	return s.client.Deliver(ctx, entry)
}

// decrypt routes a decrypt entry to the decrypt collaborator and caches the
// result. An already-cached message succeeds without another collaborator
// round trip.
func (s *Syncer) decrypt(ctx context.Context, entry *types.QueueEntry) error {
	cached, err := s.store.CachedDecryption(entry.MessageID)
	if err != nil {
		return err
	}
	if cached != nil {
		return nil
	}
	if s.decryptor == nil {
		return errNoDecryptor
	}

	msg, err := s.store.MessageByID(entry.MessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		// The message was deleted while the entry waited; nothing to do.
		return nil
	}

	result, err := s.decryptor.Decrypt(ctx, msg)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", entry.MessageID, err)
	}
	if err := s.store.CacheDecryption(result); err != nil {
		return err
	}

	decrypted := true
	return s.store.UpdateMessage(entry.MessageID, &types.MessagePatch{
		IsDecrypted:   &decrypted,
		Body:          &result.Body,
		BodyHTML:      &result.BodyHTML,
		DecryptedBody: &result.Body,
		DecryptedHTML: &result.BodyHTML,
	})
}

// Run performs a full sync pass: drain the queue, then reconcile the
// folder. Queued changes reach the remote before its snapshot is fetched,
// so a pending offline change is never visibly reverted by the merge.
func (s *Syncer) Run(ctx context.Context, rec *reconcile.Reconciler, folder string, max int64) (*types.SyncSummary, error) {
	drained, err := s.Drain(ctx, 0)
	if err != nil {
		return nil, err
	}
	summary, err := rec.SyncFolder(ctx, folder, max)
	if err != nil {
		return &types.SyncSummary{
			Folder:    folder,
			Delivered: drained.Delivered,
			Failed:    drained.Failed,
			Dropped:   drained.Dropped,
		}, err
	}
	summary.Delivered = drained.Delivered
	summary.Failed = drained.Failed
	summary.Dropped = drained.Dropped
	return summary, nil
}
