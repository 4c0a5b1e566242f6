package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/collegebot-ai/collegebot/internal/api"
)

// RedirectDelay is how long an expiry notice stays on screen before the
// caller navigates back to the login surface.
const RedirectDelay = 2 * time.Second

const (
	expiredNotice = "Your session has expired or you are not logged in. " +
		"Returning to the login screen..."
	connectivityNotice = "Sorry, I encountered an error connecting to the server. " +
		"Please check if the backend is running."
)

var (
	// ErrEmptyQuery rejects a send whose text is empty after trimming.
	ErrEmptyQuery = errors.New("empty query")
	// ErrBusy rejects a send while another chat request is in flight.
	ErrBusy = errors.New("a request is already in flight")
)

// Asker is the chat surface of the backend client.
type Asker interface {
	Chat(ctx context.Context, question string) (*api.ChatAnswer, error)
}

// Outcome describes how a resolved chat request landed.
type Outcome struct {
	SessionID string
	// Reply is the assistant message appended to the session, nil when the
	// reply was discarded.
	Reply *Message
	// AuthExpired is set when the backend rejected the credential; the
	// caller should navigate to the login surface after RedirectDelay.
	AuthExpired bool
	// Discarded is set when the originating session was deleted before the
	// reply arrived, so the reply was dropped.
	Discarded bool
}

// Controller owns the session list, the current-session pointer, and the
// single in-flight chat request. Every mutation is flushed to the store
// before returning.
//
// The send cycle is split in two so an event loop can run the network call
// without blocking: BeginSend applies the optimistic mutations and marks the
// request in flight; Resolve applies the outcome. Send composes both for
// synchronous callers.
type Controller struct {
	store  Store
	client Asker
	log    *zap.Logger

	sessions   []Session
	currentID  string
	pending    bool
	pendingSID string
}

// NewController loads the persisted session list and returns a controller
// over it. log may be nil.
func NewController(store Store, client Asker, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		store:    store,
		client:   client,
		log:      log,
		sessions: store.Load(),
	}
}

// Sessions returns the session list in insertion order.
func (c *Controller) Sessions() []Session {
	out := make([]Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// CurrentID returns the current-session pointer, "" when no session is
// selected.
func (c *Controller) CurrentID() string { return c.currentID }

// Current returns the current session, or false when the pointer is unset.
func (c *Controller) Current() (Session, bool) {
	if c.currentID == "" {
		return Session{}, false
	}
	if i := c.find(c.currentID); i >= 0 {
		return c.sessions[i], true
	}
	return Session{}, false
}

// Pending reports whether a chat request is in flight.
func (c *Controller) Pending() bool { return c.pending }

// NewChat clears the current-session pointer. The next send lazily creates a
// fresh session; no session is created here.
func (c *Controller) NewChat() {
	c.currentID = ""
}

// SelectSession points the controller at an existing session. Unknown ids
// are a no-op.
func (c *Controller) SelectSession(id string) {
	if c.find(id) >= 0 {
		c.currentID = id
	}
}

// DeleteSession removes a session and persists the shrunken list. Deleting
// the current session clears the current-session pointer.
func (c *Controller) DeleteSession(id string) {
	i := c.find(id)
	if i < 0 {
		return
	}
	c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
	if c.currentID == id {
		c.currentID = ""
	}
	c.save()
}

// BeginSend validates the query, lazily creates the session, appends the
// user message optimistically, marks the request in flight, and persists.
// It returns the session id the eventual reply must be resolved against.
func (c *Controller) BeginSend(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if c.pending {
		return "", ErrBusy
	}

	if c.currentID == "" {
		s := Session{
			ID:        NewSessionID(),
			Title:     DeriveTitle(query),
			Timestamp: time.Now(),
		}
		c.sessions = append(c.sessions, s)
		c.currentID = s.ID
	}

	sid := c.currentID
	i := c.find(sid)
	c.sessions[i].Messages = append(c.sessions[i].Messages, Message{
		Role:    RoleUser,
		Content: query,
	})
	c.pending = true
	c.pendingSID = sid
	c.save()
	return sid, nil
}

// Resolve applies the outcome of the in-flight request to the session it
// originated from, clears the pending flag, and persists. A reply whose
// session was deleted while the request was in flight is discarded.
func (c *Controller) Resolve(sessionID string, answer *api.ChatAnswer, sendErr error) Outcome {
	c.pending = false
	c.pendingSID = ""

	i := c.find(sessionID)
	if i < 0 {
		c.log.Info("discarding late reply", zap.String("session", sessionID))
		return Outcome{SessionID: sessionID, Discarded: true, AuthExpired: sendErr != nil && api.IsAuthError(sendErr)}
	}

	var msg Message
	var authExpired bool
	switch {
	case sendErr == nil:
		msg = Message{Role: RoleAssistant, Content: answer.Answer, Sources: answer.Sources}
	case api.IsAuthError(sendErr):
		msg = Message{Role: RoleAssistant, Content: expiredNotice}
		authExpired = true
	default:
		c.log.Warn("chat request failed", zap.Error(sendErr))
		msg = Message{Role: RoleAssistant, Content: connectivityNotice}
	}
	if msg.Sources == nil {
		msg.Sources = []string{}
	}

	c.sessions[i].Messages = append(c.sessions[i].Messages, msg)
	c.save()
	return Outcome{SessionID: sessionID, Reply: &msg, AuthExpired: authExpired}
}

// Send runs the full cycle synchronously: optimistic append, chat request,
// outcome application. Used by the one-shot CLI path and tests.
func (c *Controller) Send(ctx context.Context, query string) (Outcome, error) {
	sid, err := c.BeginSend(query)
	if err != nil {
		return Outcome{}, err
	}
	answer, sendErr := c.client.Chat(ctx, strings.TrimSpace(query))
	return c.Resolve(sid, answer, sendErr), nil
}

// Reset reloads the session list from the store and clears all derived
// in-memory state. Called after a credential change so nothing stale
// survives login or logout.
func (c *Controller) Reset() {
	c.sessions = c.store.Load()
	c.currentID = ""
	c.pending = false
	c.pendingSID = ""
}

func (c *Controller) find(id string) int {
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) save() {
	if err := c.store.Save(c.sessions); err != nil {
		c.log.Warn("persist sessions", zap.Error(err))
	}
}
