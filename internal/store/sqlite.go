// Package store persists the client's durable state: the serialized session
// list and the bearer credentials. Both live in a single key-value table so
// each logical write replaces one coherent payload.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/collegebot-ai/collegebot/internal/chat"
)

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Persisted keys. chatSessions holds the full session list as one JSON
// payload; token and role together form the credential pair.
const (
	keySessions = "chatSessions"
	keyToken    = "token"
	keyRole     = "role"
)

// SQLiteStore implements chat.Store backed by a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// DefaultDBPath returns the default database path
// (~/.local/share/collegebot/state.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "collegebot", "state.db"), nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. log may be nil.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createStateTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// Load returns the persisted session list. A missing or unparseable payload
// yields an empty list; corruption is logged, never surfaced.
func (s *SQLiteStore) Load() []chat.Session {
	raw, ok := s.get(keySessions)
	if !ok {
		return nil
	}
	var sessions []chat.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.log.Warn("corrupt session payload, starting empty", zap.Error(err))
		return nil
	}
	return sessions
}

// Save overwrites the full persisted session list.
func (s *SQLiteStore) Save(sessions []chat.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	return s.set(keySessions, string(data))
}

func (s *SQLiteStore) Token() string {
	v, _ := s.get(keyToken)
	return v
}

func (s *SQLiteStore) Role() string {
	v, _ := s.get(keyRole)
	return v
}

// SetCredentials stores the credential pair as one unit.
func (s *SQLiteStore) SetCredentials(token, role string) error {
	if err := s.set(keyToken, token); err != nil {
		return err
	}
	return s.set(keyRole, role)
}

// ClearCredentials removes the credential pair. Session history survives.
func (s *SQLiteStore) ClearCredentials() error {
	if err := s.del(keyToken); err != nil {
		return err
	}
	return s.del(keyRole)
}

// ClearAll removes every key this client owns, sessions included.
func (s *SQLiteStore) ClearAll() error {
	_, err := s.db.Exec("DELETE FROM state")
	if err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(key string) (string, bool) {
	var v string
	err := s.db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.log.Warn("read state", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

func (s *SQLiteStore) set(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) del(key string) error {
	_, err := s.db.Exec("DELETE FROM state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}
