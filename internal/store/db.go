package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the profile's journal database.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the SQLite journal at path in WAL mode. Writes are
// funneled through one connection so the journal engine, the control plane
// and the pruner never see SQLITE_BUSY among themselves.
func Open(path string) (*DB, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	q.Set("_synchronous", "NORMAL")

	sqlDB, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// Path returns the file the journal lives in.
func (db *DB) Path() string {
	return db.path
}

// Checkpoint folds the WAL back into the main file and truncates it.
func (db *DB) Checkpoint() error {
	_, err := db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}
