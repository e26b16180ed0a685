// Package history keeps an append-only journal of setup runs in SQLite.
// The journal is an audit trail only; detection never reads it.
package history

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/sigreer/ardenthat/internal/errors"
	_ "modernc.org/sqlite"
)

// DefaultPath returns $XDG_STATE_HOME/ardenthat/history.db
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "ardenthat", "history.db")
}

// Journal wraps the SQLite database connection
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal at path, upgrading its schema. An
// empty path selects DefaultPath. Failures carry the HISTORY code and
// the path.
func Open(path string) (*Journal, error) {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to create journal directory").
			WithDetail("path", path)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to open journal").
			WithDetail("path", path)
	}

	// Steps reference their run; WAL lets history read during a setup
	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to configure journal").
			WithDetail("path", path)
	}

	j := &Journal{conn: conn, path: path}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to upgrade journal schema").
			WithDetail("path", path)
	}
	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// SchemaVersion returns the highest applied migration
func (j *Journal) SchemaVersion() (int, error) {
	var version int
	err := j.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

// migrate applies every migration newer than the recorded schema
// version, each in its own transaction
func (j *Journal) migrate() error {
	_, err := j.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	version, err := j.SchemaVersion()
	if err != nil {
		return err
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := j.conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, errors.ErrHistory, "migration v%d failed", v).
				WithDetail("version", v)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	migrationV1,
	migrationV2,
}

// migrationV1 creates the run and step tables. Times are unix milliseconds.
const migrationV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    applied INTEGER DEFAULT 0,
    finalized INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS steps (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    seq INTEGER NOT NULL,
    driver TEXT NOT NULL,
    kind TEXT,
    state TEXT NOT NULL,
    action TEXT,
    error TEXT,
    duration_ms INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
CREATE INDEX IF NOT EXISTS idx_steps_driver ON steps(driver);
`

// migrationV2 records which machine and kernel a run targeted
const migrationV2 = `
ALTER TABLE runs ADD COLUMN hostname TEXT;
ALTER TABLE runs ADD COLUMN kernel_release TEXT;
`
