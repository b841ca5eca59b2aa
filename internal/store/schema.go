package store

// Schema is the DDL for the quantamail profile database.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
    id                  TEXT PRIMARY KEY,
    thread_id           TEXT,
    remote_id           TEXT,
    from_addr           TEXT NOT NULL,
    from_name           TEXT,
    to_addr             TEXT,
    subject             TEXT NOT NULL,
    body                TEXT,
    body_html           TEXT,
    body_encrypted      BLOB,
    snippet             TEXT,
    folder              TEXT NOT NULL DEFAULT 'inbox',
    is_read             INTEGER NOT NULL DEFAULT 0,
    is_starred          INTEGER NOT NULL DEFAULT 0,
    is_encrypted        INTEGER NOT NULL DEFAULT 0,
    is_decrypted        INTEGER NOT NULL DEFAULT 0,
    globally_decrypted  INTEGER NOT NULL DEFAULT 0,
    security_level      INTEGER NOT NULL DEFAULT 0,
    flow_id             TEXT,
    algorithm           TEXT,
    quantum_enhanced    INTEGER NOT NULL DEFAULT 0,
    decrypted_body      TEXT,
    decrypted_html      TEXT,
    attachments         TEXT,
    date                TEXT NOT NULL,
    synced_at           TEXT,
    modified_at         TEXT,
    sync_status         TEXT NOT NULL DEFAULT 'synced'
);

CREATE TABLE IF NOT EXISTS sync_queue (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    operation       TEXT NOT NULL,
    message_id      TEXT NOT NULL,
    payload         TEXT,
    attempts        INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT,
    last_attempt_at TEXT,
    created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decryption_cache (
    message_id      TEXT PRIMARY KEY,
    flow_id         TEXT,
    body            TEXT,
    body_html       TEXT,
    security_info   TEXT,
    cached_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_folder ON messages(folder);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date DESC);
CREATE INDEX IF NOT EXISTS idx_messages_flow ON messages(flow_id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
`

// snapshotTables lists the tables copied between the in-memory database and
// the on-disk snapshot. Order matters only for readability.
var snapshotTables = []string{"messages", "sync_queue", "decryption_cache", "settings"}
