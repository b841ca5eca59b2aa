package store

import (
	"database/sql"
	"fmt"

	"github.com/quantamail/quantamail/internal/types"
)

// Sync queue: a durable FIFO of operations awaiting delivery to the remote
// service. Entries are removed only on confirmed success, so a consumer
// crash between TakePending and MarkSucceeded causes redelivery, never loss.

// Enqueue appends a pending operation. It never touches the network.
func (s *Store) Enqueue(operation, messageID, payload string) (*types.QueueEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !types.IsValidOperation(operation) {
		return nil, fmt.Errorf("enqueue: unknown operation %q", operation)
	}
	entry := &types.QueueEntry{
		Operation: operation,
		MessageID: messageID,
		Payload:   payload,
		CreatedAt: Now(),
	}
	res, err := s.conn.Exec(`
		INSERT INTO sync_queue (operation, message_id, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		entry.Operation, entry.MessageID, nullStr(entry.Payload), entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s for %s: %w", operation, messageID, err)
	}
	entry.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("enqueue %s for %s: %w", operation, messageID, err)
	}
	s.flush.Arm()
	return entry, nil
}

// TakePending returns the oldest limit entries in id order without removing
// them. limit <= 0 means all.
func (s *Store) TakePending(limit int) ([]*types.QueueEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.Query(`
		SELECT id, operation, message_id, payload, attempts, last_error, last_attempt_at, created_at
		FROM sync_queue ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("take pending: %w", err)
	}
	defer rows.Close()

	var result []*types.QueueEntry
	for rows.Next() {
		e := &types.QueueEntry{}
		var payload, lastError, lastAttempt sql.NullString
		if err := rows.Scan(&e.ID, &e.Operation, &e.MessageID, &payload,
			&e.Attempts, &lastError, &lastAttempt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload.String
		e.LastError = lastError.String
		e.LastAttemptAt = lastAttempt.String
		result = append(result, e)
	}
	return result, rows.Err()
}

// MarkSucceeded removes an entry after confirmed delivery.
func (s *Store) MarkSucceeded(entryID int64) error {
	return s.removeEntry(entryID, "mark succeeded")
}

// Discard removes an entry without delivery. The queue never drops entries
// on its own; this is the consumer's explicit give-up path.
func (s *Store) Discard(entryID int64) error {
	return s.removeEntry(entryID, "discard")
}

func (s *Store) removeEntry(entryID int64, what string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.conn.Exec("DELETE FROM sync_queue WHERE id = ?", entryID); err != nil {
		return fmt.Errorf("%s entry %d: %w", what, entryID, err)
	}
	s.flush.Arm()
	return nil
}

// MarkFailed increments the attempt counter and records the delivery error.
// The entry stays queued for retry.
func (s *Store) MarkFailed(entryID int64, errorMessage string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.conn.Exec(`
		UPDATE sync_queue
		SET attempts = attempts + 1, last_error = ?, last_attempt_at = ?
		WHERE id = ?`,
		nullStr(errorMessage), Now(), entryID)
	if err != nil {
		return fmt.Errorf("mark failed entry %d: %w", entryID, err)
	}
	s.flush.Arm()
	return nil
}

// PendingCount returns the number of outstanding entries.
func (s *Store) PendingCount() (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM sync_queue").Scan(&n); err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return n, nil
}
