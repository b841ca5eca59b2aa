// Package store is the persistent local mailbox store.
//
// The authoritative state lives in an in-memory SQLite database; every
// mutating call arms a debounced flush that writes the whole database to a
// single snapshot file under the profile directory. The snapshot is loaded
// back in full at open. Reads and writes never wait on the network or on
// the flush timer.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/quantamail/quantamail/internal/debounce"
	"github.com/quantamail/quantamail/internal/logging"
	"github.com/quantamail/quantamail/internal/types"
	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable is returned by every operation invoked before the
// store is opened or after it has been closed.
var ErrStoreUnavailable = errors.New("store is not open")

// DefaultFlushWindow is the quiescence window for the debounced snapshot
// flush.
const DefaultFlushWindow = time.Second

// SnapshotName is the snapshot file name inside a profile directory.
const SnapshotName = "mail.db"

// Store owns the messages, sync_queue, decryption_cache and settings tables.
// Callers receive copies of row data; no returned value aliases store state.
type Store struct {
	conn   *sql.DB
	path   string
	flush  *debounce.Task
	log    logging.Logger
	closed atomic.Bool
}

// Option configures a Store at open time.
type Option func(*options)

type options struct {
	log         logging.Logger
	flushWindow time.Duration
}

// WithLogger sets the store logger. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithFlushWindow overrides the debounce quiescence window.
func WithFlushWindow(d time.Duration) Option {
	return func(o *options) { o.flushWindow = d }
}

// Open creates the in-memory database, applies the schema and loads the
// snapshot at path if one exists. A snapshot that cannot be loaded is moved
// aside to path+".corrupt" and the store starts empty.
func Open(path string, opts ...Option) (*Store, error) {
	o := &options{log: logging.NopLogger{}, flushWindow: DefaultFlushWindow}
	for _, opt := range opts {
		opt(o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory SQLite database is private to its connection, so the
	// pool must never hand out a second one.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s := &Store{conn: conn, path: path, log: o.log}
	if err := s.loadSnapshot(); err != nil {
		s.log.Error(context.Background(), "snapshot unreadable, starting empty",
			"path", path, "err", err)
		s.reset()
		if renameErr := os.Rename(path, path+".corrupt"); renameErr != nil {
			s.log.Warn(context.Background(), "could not set corrupt snapshot aside",
				"err", renameErr)
		}
	}

	s.flush = debounce.New(o.flushWindow, s.writeSnapshot, func(err error) {
		// A failed flush is never surfaced to the mutating caller; memory
		// stays authoritative and the next flush carries everything.
		s.log.Error(context.Background(), "snapshot flush failed", "path", path, "err", err)
	})
	return s, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Flush writes the snapshot now, cancelling any pending debounced flush.
func (s *Store) Flush() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.flush.Drain()
}

// Close performs a final synchronous flush and releases the store handle.
// Every operation afterwards returns ErrStoreUnavailable.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	flushErr := s.flush.Drain()
	s.flush.Stop()
	if err := s.conn.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

func (s *Store) ready() error {
	if s.conn == nil || s.closed.Load() {
		return ErrStoreUnavailable
	}
	return nil
}

// reset clears all tables; used when a snapshot turns out to be corrupt
// part-way through loading.
func (s *Store) reset() {
	for _, table := range snapshotTables {
		s.conn.Exec("DELETE FROM " + table)
	}
}

// loadSnapshot copies every table from the on-disk snapshot into the
// in-memory database and verifies that each message row decodes.
func (s *Store) loadSnapshot() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := s.conn.Exec("ATTACH DATABASE " + quotePath(s.path) + " AS snap"); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	defer s.conn.Exec("DETACH DATABASE snap")

	for _, table := range snapshotTables {
		stmt := fmt.Sprintf("INSERT INTO main.%s SELECT * FROM snap.%s", table, table)
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}

	// Decode every message once so corruption surfaces at open, not on
	// first read.
	rows, err := s.conn.Query("SELECT " + messageColumns + " FROM messages")
	if err != nil {
		return fmt.Errorf("verify messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if _, err := scanMessage(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// writeSnapshot serializes the whole database to the snapshot path via a
// temp file and an atomic rename, so a crash mid-write never truncates the
// previous snapshot.
func (s *Store) writeSnapshot() error {
	if s.closed.Load() && s.conn == nil {
		return ErrStoreUnavailable
	}
	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear temp snapshot: %w", err)
	}
	if _, err := s.conn.Exec("VACUUM INTO " + quotePath(tmp)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// quotePath quotes a file path as a SQL string literal. ATTACH and VACUUM
// INTO do not reliably accept bound parameters across drivers.
func quotePath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", "''") + "'"
}

// Now returns the current time as an ISO 8601 string.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// --- Message operations ---

// UpsertMessage inserts or replaces a message by id and bumps modified_at.
// synced_at is stored exactly as given.
func (s *Store) UpsertMessage(m *types.Message) error {
	if err := s.ready(); err != nil {
		return err
	}
	if m.ID == "" {
		return fmt.Errorf("upsert message: empty id")
	}
	r := encodeMessage(m)
	r.ModifiedAt = nullStr(Now())
	if err := execUpsert(s.conn, r); err != nil {
		return fmt.Errorf("upsert message %s: %w", m.ID, err)
	}
	s.flush.Arm()
	return nil
}

// UpsertMessages stores a batch of messages in a single transaction, so the
// whole batch commits or none of it does. Used by reconciliation.
func (s *Store) UpsertMessages(msgs []*types.Message) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert batch: %w", err)
	}
	now := Now()
	for _, m := range msgs {
		if m.ID == "" {
			tx.Rollback()
			return fmt.Errorf("upsert batch: empty id")
		}
		r := encodeMessage(m)
		r.ModifiedAt = nullStr(now)
		if err := execUpsert(tx, r); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert message %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert batch: %w", err)
	}
	s.flush.Arm()
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func execUpsert(db execer, r *row) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.args()...)
	return err
}

// MessagesByFolder returns up to limit messages ordered by date descending.
// The pseudo-folder "all" bypasses the folder filter. limit <= 0 means no
// limit. An empty result is not an error.
func (s *Store) MessagesByFolder(folder string, limit, offset int) ([]*types.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := "SELECT " + messageColumns + " FROM messages"
	var args []any
	if folder != "" && folder != types.FolderAll {
		query += " WHERE folder = ?"
		args = append(args, folder)
	}
	query += " ORDER BY date DESC LIMIT ? OFFSET ?"
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// MessageByID returns the message with the given id, or nil when absent.
func (s *Store) MessageByID(id string) (*types.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.queryOne("SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
}

// MessageByFlowID returns the message associated with a key-exchange flow,
// or nil when absent.
func (s *Store) MessageByFlowID(flowID string) (*types.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.queryOne("SELECT "+messageColumns+" FROM messages WHERE flow_id = ?", flowID)
}

func (s *Store) queryOne(query string, arg any) (*types.Message, error) {
	m, err := scanMessage(s.conn.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMessage applies the non-nil fields of patch and bumps modified_at.
// Updating an absent id is a no-op.
func (s *Store) UpdateMessage(id string, patch *types.MessagePatch) error {
	if err := s.ready(); err != nil {
		return err
	}
	if patch != nil && patch.Folder != nil && !types.IsValidFolder(*patch.Folder) {
		return fmt.Errorf("update message %s: invalid folder %q", id, *patch.Folder)
	}
	if patch != nil && patch.SyncStatus != nil && !types.IsValidSyncStatus(*patch.SyncStatus) {
		return fmt.Errorf("update message %s: invalid sync status %q", id, *patch.SyncStatus)
	}

	set := []string{"modified_at = ?"}
	args := []any{Now()}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if patch != nil {
		if patch.Subject != nil {
			add("subject", *patch.Subject)
		}
		if patch.Body != nil {
			add("body", nullStr(*patch.Body))
		}
		if patch.BodyHTML != nil {
			add("body_html", nullStr(*patch.BodyHTML))
		}
		if patch.Snippet != nil {
			add("snippet", nullStr(*patch.Snippet))
		}
		if patch.Folder != nil {
			add("folder", *patch.Folder)
		}
		if patch.IsRead != nil {
			add("is_read", boolInt(*patch.IsRead))
		}
		if patch.IsStarred != nil {
			add("is_starred", boolInt(*patch.IsStarred))
		}
		if patch.IsDecrypted != nil {
			add("is_decrypted", boolInt(*patch.IsDecrypted))
		}
		if patch.GloballyDecrypted != nil {
			add("globally_decrypted", boolInt(*patch.GloballyDecrypted))
		}
		if patch.DecryptedBody != nil {
			add("decrypted_body", nullStr(*patch.DecryptedBody))
		}
		if patch.DecryptedHTML != nil {
			add("decrypted_html", nullStr(*patch.DecryptedHTML))
		}
		if patch.Attachments != nil {
			add("attachments", nullStr(*patch.Attachments))
		}
		if patch.SyncedAt != nil {
			add("synced_at", nullStr(*patch.SyncedAt))
		}
		if patch.SyncStatus != nil {
			add("sync_status", *patch.SyncStatus)
		}
	}

	args = append(args, id)
	_, err := s.conn.Exec("UPDATE messages SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update message %s: %w", id, err)
	}
	s.flush.Arm()
	return nil
}

// DeleteMessage removes a message. Deleting a non-existent id is not an
// error.
func (s *Store) DeleteMessage(id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.conn.Exec("DELETE FROM messages WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	s.flush.Arm()
	return nil
}

// CountsByFolder returns message counts grouped by folder. The map is empty
// for an empty store.
func (s *Store) CountsByFolder() (map[string]int, error) {
	return s.folderCounts("SELECT folder, COUNT(*) FROM messages GROUP BY folder")
}

// UnreadCountsByFolder returns unread message counts grouped by folder.
func (s *Store) UnreadCountsByFolder() (map[string]int, error) {
	return s.folderCounts("SELECT folder, COUNT(*) FROM messages WHERE is_read = 0 GROUP BY folder")
}

func (s *Store) folderCounts(query string) (map[string]int, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("count by folder: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var folder string
		var n int
		if err := rows.Scan(&folder, &n); err != nil {
			return nil, err
		}
		counts[folder] = n
	}
	return counts, rows.Err()
}

// SearchMessages finds messages whose subject, sender name, sender address,
// snippet or body contains query, case-insensitively, ordered by date
// descending. An empty query matches nothing. folder narrows the scope;
// "" or "all" searches everywhere.
func (s *Store) SearchMessages(query, folder string) ([]*types.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	stmt := "SELECT " + messageColumns + ` FROM messages
		WHERE (subject LIKE ? ESCAPE '\'
		    OR from_name LIKE ? ESCAPE '\'
		    OR from_addr LIKE ? ESCAPE '\'
		    OR snippet LIKE ? ESCAPE '\'
		    OR body LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern, pattern, pattern, pattern}
	if folder != "" && folder != types.FolderAll {
		stmt += " AND folder = ?"
		args = append(args, folder)
	}
	stmt += " ORDER BY date DESC"

	rows, err := s.conn.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func collectMessages(rows *sql.Rows) ([]*types.Message, error) {
	var result []*types.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// --- Settings ---

// Setting returns the value for key, or "" when absent.
func (s *Store) Setting(key string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	var value string
	err := s.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a key/value pair, overwriting any previous value.
func (s *Store) SetSetting(key, value string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	s.flush.Arm()
	return nil
}

// WipeAll clears messages, sync queue, decryption cache and settings in one
// transaction. Used on logout.
func (s *Store) WipeAll() error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	for _, table := range snapshotTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wipe: %w", err)
	}
	s.flush.Arm()
	return nil
}
