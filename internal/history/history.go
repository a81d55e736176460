// Package history provides SQLite-based persistence for session snapshots.
// The database is opened lazily and created on first use.
// If opening the DB or executing queries fails, the store falls back to in-memory storage.
package history

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/chat-go/internal/logger"
)

// Store keeps one serialized snapshot per key.
type Store struct {
	path string

	mu  sync.Mutex
	mem map[string][]byte // in-memory fallback

	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// New returns a Store backed by the SQLite file at path. Nothing is opened until first use.
func New(path string) *Store {
	return &Store{path: path, mem: make(map[string][]byte)}
}

// NewMemory returns a Store that never touches disk.
func NewMemory() *Store {
	s := New("")
	s.dbOnce.Do(func() { s.initErr = errors.New("memory store") })
	return s
}

// initDB lazily opens the SQLite database and creates the snapshots table if it doesn't exist.
func (s *Store) initDB() {
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory snapshots", "error", err)
		return
	}
	s.db.SetMaxOpenConns(1)
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
        name TEXT PRIMARY KEY,
        data BLOB NOT NULL,
        updated_at DATETIME
    );`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory snapshots", "error", err)
		return
	}
	logger.L.Info("sqlite snapshot DB initialized", "path", s.path)
}

func (s *Store) usable() bool {
	s.dbOnce.Do(s.initDB)
	return s.initErr == nil && s.db != nil
}

// Save persists data under key in SQLite when available and always keeps
// an in-memory copy as fallback.
func (s *Store) Save(key string, data []byte) error {
	var err error
	if s.usable() {
		_, err = s.db.Exec(`INSERT INTO snapshots (name, data, updated_at) VALUES (?,?,?)
            ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;`,
			key, data, time.Now().UTC())
		if err != nil {
			logger.L.Error("failed to store snapshot in sqlite; keeping it in memory", "key", key, "error", err)
		}
	}

	cp := append([]byte(nil), data...)
	s.mu.Lock()
	s.mem[key] = cp
	s.mu.Unlock()
	return err
}

// Load returns the snapshot stored under key, or nil when there is none.
func (s *Store) Load(key string) ([]byte, error) {
	if s.usable() {
		var data []byte
		err := s.db.QueryRow(`SELECT data FROM snapshots WHERE name = ?;`, key).Scan(&data)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			logger.L.Warn("failed to read snapshot from sqlite; using memory copy", "key", key, "error", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.mem[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Remove deletes the snapshot stored under key.
func (s *Store) Remove(key string) error {
	var err error
	if s.usable() {
		if _, err = s.db.Exec(`DELETE FROM snapshots WHERE name = ?;`, key); err != nil {
			logger.L.Error("failed to delete snapshot from sqlite", "key", key, "error", err)
		}
	}
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	return err
}

// Close releases the database handle, if one was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
