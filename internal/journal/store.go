// Package journal persists the event stream to SQLite so sessions can
// be inspected after the fact: what the servers said, which frames
// were dropped, and why.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// store wraps a SQLite connection with thread-safe write access.
type store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func openStore(dbPath string) (*store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", dbPath, err)
	}

	// SQLite doesn't support concurrent writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Warn().Err(err).Msg("failed to enable WAL mode")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("journal ping failed: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("journal opened")

	return &store{db: db, path: dbPath}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

func (s *store) exec(query string, args ...interface{}) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Exec(query, args...)
}

func (s *store) query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

func (s *store) queryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}
