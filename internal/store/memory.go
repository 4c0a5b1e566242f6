package store

import (
	"encoding/json"

	"github.com/collegebot-ai/collegebot/internal/chat"
)

// MemStore is an in-memory chat.Store for tests. It round-trips the session
// list through JSON so serialization bugs surface the same way they would
// against SQLite.
type MemStore struct {
	sessions string
	token    string
	role     string
	// SaveErr, when set, is returned from Save to exercise persistence
	// failure paths.
	SaveErr error
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() []chat.Session {
	if m.sessions == "" {
		return nil
	}
	var out []chat.Session
	if err := json.Unmarshal([]byte(m.sessions), &out); err != nil {
		return nil
	}
	return out
}

func (m *MemStore) Save(sessions []chat.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	m.sessions = string(data)
	return nil
}

func (m *MemStore) Token() string { return m.token }
func (m *MemStore) Role() string  { return m.role }

func (m *MemStore) SetCredentials(token, role string) error {
	m.token, m.role = token, role
	return nil
}

func (m *MemStore) ClearCredentials() error {
	m.token, m.role = "", ""
	return nil
}

func (m *MemStore) ClearAll() error {
	m.sessions, m.token, m.role = "", "", ""
	return nil
}

// Corrupt replaces the persisted session payload with garbage, simulating a
// damaged store.
func (m *MemStore) Corrupt() { m.sessions = "{not json" }
