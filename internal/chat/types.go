// Package chat owns the multi-session conversation state: the session list,
// the current-session pointer, and the optimistic send/receive cycle against
// the answering service. All mutations are flushed to the injected Store so a
// restart never loses an acknowledged message.
package chat

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a conversation.
// Sources carries citation labels and is only populated on assistant messages.
type Message struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Sources []string `json:"sources,omitempty"`
}

// Session is one conversation thread. Title is derived from the first user
// message at creation time and never changes afterwards. Messages is
// append-only; insertion order is display order.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// Store is the durable backing for the session list and credentials.
// Implementations persist the full session list as one payload; Load swallows
// parse failures and returns an empty list instead.
type Store interface {
	Load() []Session
	Save(sessions []Session) error

	Token() string
	Role() string
	SetCredentials(token, role string) error
	ClearCredentials() error
	ClearAll() error
}

// maxTitleLen is the rune budget for a session title before truncation.
const maxTitleLen = 30

// NewSessionID returns a client-unique session id: the current unix
// millisecond timestamp in base 36 followed by a random hex component.
func NewSessionID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + fmt.Sprintf("%x", b)
}

// DeriveTitle builds a session title from the first query, truncating long
// queries to 30 runes plus an ellipsis.
func DeriveTitle(query string) string {
	runes := []rune(query)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen]) + "..."
	}
	return query
}
