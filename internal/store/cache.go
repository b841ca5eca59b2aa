package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quantamail/quantamail/internal/types"
)

// Decryption cache: one entry per message, upsert semantics. Presence of an
// entry is sufficient to skip re-invoking the decrypt collaborator.

// CacheDecryption stores (or overwrites) the decrypted content for a
// message.
func (s *Store) CacheDecryption(res *types.DecryptionResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	if res.MessageID == "" {
		return fmt.Errorf("cache decryption: empty message id")
	}
	cachedAt := res.CachedAt
	if cachedAt == "" {
		cachedAt = Now()
	}
	_, err := s.conn.Exec(`
		INSERT INTO decryption_cache (message_id, flow_id, body, body_html, security_info, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			flow_id = excluded.flow_id,
			body = excluded.body,
			body_html = excluded.body_html,
			security_info = excluded.security_info,
			cached_at = excluded.cached_at`,
		res.MessageID, nullStr(res.FlowID), nullStr(res.Body),
		nullStr(res.BodyHTML), nullStr(res.SecurityInfo), cachedAt)
	if err != nil {
		return fmt.Errorf("cache decryption for %s: %w", res.MessageID, err)
	}
	s.flush.Arm()
	return nil
}

// CachedDecryption returns the cached decryption for a message, or nil when
// the message has never been decrypted.
func (s *Store) CachedDecryption(messageID string) (*types.DecryptionResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	res := &types.DecryptionResult{MessageID: messageID}
	var flowID, body, bodyHTML, securityInfo sql.NullString
	err := s.conn.QueryRow(`
		SELECT flow_id, body, body_html, security_info, cached_at
		FROM decryption_cache WHERE message_id = ?`, messageID).
		Scan(&flowID, &body, &bodyHTML, &securityInfo, &res.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cached decryption for %s: %w", messageID, err)
	}
	res.FlowID = flowID.String
	res.Body = body.String
	res.BodyHTML = bodyHTML.String
	res.SecurityInfo = securityInfo.String
	return res, nil
}
