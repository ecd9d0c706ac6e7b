// Package db manages the SQLite audit database. One database per data
// directory, append-only from the application's point of view.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const AuditDBFile = "audit.db"

// AuditSchema defines the append-only audit log table.
const AuditSchema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS audit_log (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp       TEXT NOT NULL,
    profile_id      TEXT DEFAULT '',
    family          TEXT DEFAULT '',
    operator        TEXT NOT NULL DEFAULT 'local',
    event_type      TEXT NOT NULL,
    detail          TEXT DEFAULT '{}',
    record_hash     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_log(event_type);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_profile ON audit_log(profile_id);
`

// OpenAuditDB opens or creates the audit database under dataDir.
func OpenAuditDB(dataDir string) (*sql.DB, error) {
	dbPath := filepath.Join(dataDir, AuditDBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	if _, err := db.Exec(AuditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit schema: %w", err)
	}

	return db, nil
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir(path string) error {
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}
