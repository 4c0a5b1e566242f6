package chat_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/collegebot-ai/collegebot/internal/api"
	"github.com/collegebot-ai/collegebot/internal/chat"
	"github.com/collegebot-ai/collegebot/internal/store"
)

type fakeClient struct {
	answer *api.ChatAnswer
	err    error
	calls  int
}

func (f *fakeClient) Chat(ctx context.Context, question string) (*api.ChatAnswer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func newTestController(t *testing.T, client *fakeClient) (*chat.Controller, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	return chat.NewController(st, client, nil), st
}

func TestSendCreatesSessionLazily(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "42", Sources: []string{"doc.pdf"}}}
	c, _ := newTestController(t, client)

	if len(c.Sessions()) != 0 {
		t.Fatalf("expected empty session list at start")
	}
	c.NewChat()
	if len(c.Sessions()) != 0 {
		t.Fatal("NewChat must not create a session")
	}

	outcome, err := c.Send(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	sessions := c.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if c.CurrentID() != sessions[0].ID {
		t.Errorf("current pointer %q, want %q", c.CurrentID(), sessions[0].ID)
	}
	if sessions[0].Title != "what is the answer?" {
		t.Errorf("title = %q", sessions[0].Title)
	}
	if outcome.Reply == nil || outcome.Reply.Content != "42" {
		t.Fatalf("reply = %+v", outcome.Reply)
	}
	if len(outcome.Reply.Sources) != 1 || outcome.Reply.Sources[0] != "doc.pdf" {
		t.Errorf("sources = %v", outcome.Reply.Sources)
	}
}

func TestOrderPreservation(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, _ := newTestController(t, client)

	queries := []string{"first", "second", "third", "fourth"}
	for _, q := range queries {
		if _, err := c.Send(context.Background(), q); err != nil {
			t.Fatalf("Send(%q): %v", q, err)
		}
	}

	sess, ok := c.Current()
	if !ok {
		t.Fatal("no current session")
	}
	if len(sess.Messages) != 2*len(queries) {
		t.Fatalf("messages = %d, want %d", len(sess.Messages), 2*len(queries))
	}
	for i, msg := range sess.Messages {
		wantRole := chat.RoleUser
		if i%2 == 1 {
			wantRole = chat.RoleAssistant
		}
		if msg.Role != wantRole {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, wantRole)
		}
		if msg.Role == chat.RoleUser && msg.Content != queries[i/2] {
			t.Errorf("message %d content = %q, want %q", i, msg.Content, queries[i/2])
		}
	}
}

func TestSendEmptyQuery(t *testing.T) {
	client := &fakeClient{}
	c, _ := newTestController(t, client)

	for _, q := range []string{"", "   ", "\n\t "} {
		_, err := c.Send(context.Background(), q)
		if err != chat.ErrEmptyQuery {
			t.Errorf("Send(%q) err = %v, want ErrEmptyQuery", q, err)
		}
	}
	if len(c.Sessions()) != 0 {
		t.Error("empty send must not create a session")
	}
	if client.calls != 0 {
		t.Errorf("client called %d times, want 0", client.calls)
	}
	if c.Pending() {
		t.Error("pending should stay false")
	}
}

func TestSingleInFlight(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, _ := newTestController(t, client)

	sid, err := c.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	if !c.Pending() {
		t.Fatal("pending should be set after BeginSend")
	}

	if _, err := c.BeginSend("another"); err != chat.ErrBusy {
		t.Fatalf("second BeginSend err = %v, want ErrBusy", err)
	}
	sess, _ := c.Current()
	if len(sess.Messages) != 1 {
		t.Fatalf("messages = %d, want 1 (no duplicate append)", len(sess.Messages))
	}

	c.Resolve(sid, &api.ChatAnswer{Answer: "ok"}, nil)
	if c.Pending() {
		t.Error("pending should clear after Resolve")
	}
}

func TestAuthFailure(t *testing.T) {
	client := &fakeClient{err: &api.APIError{Status: http.StatusUnauthorized, Detail: "Could not validate credentials"}}
	c, _ := newTestController(t, client)

	outcome, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !outcome.AuthExpired {
		t.Fatal("expected AuthExpired outcome")
	}

	sess, _ := c.Current()
	if len(sess.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(sess.Messages))
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != chat.RoleAssistant || !strings.Contains(last.Content, "expired") {
		t.Errorf("expiry notice = %+v", last)
	}
	if c.Pending() {
		t.Error("pending should clear after auth failure")
	}
}

func TestConnectivityFailure(t *testing.T) {
	client := &fakeClient{err: &api.APIError{Status: http.StatusInternalServerError}}
	c, _ := newTestController(t, client)

	outcome, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if outcome.AuthExpired {
		t.Error("server error must not classify as auth failure")
	}

	sess, _ := c.Current()
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != chat.RoleAssistant || !strings.Contains(last.Content, "error connecting") {
		t.Errorf("connectivity notice = %+v", last)
	}

	// The conversation remains usable: a retry goes through.
	client.err = nil
	client.answer = &api.ChatAnswer{Answer: "recovered"}
	outcome, err = c.Send(context.Background(), "retry")
	if err != nil {
		t.Fatalf("retry Send: %v", err)
	}
	if outcome.Reply == nil || outcome.Reply.Content != "recovered" {
		t.Errorf("retry reply = %+v", outcome.Reply)
	}
}

func TestLateReplyDiscardedAfterDeletion(t *testing.T) {
	client := &fakeClient{}
	c, _ := newTestController(t, client)

	sid, err := c.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	c.DeleteSession(sid)

	outcome := c.Resolve(sid, &api.ChatAnswer{Answer: "too late"}, nil)
	if !outcome.Discarded {
		t.Fatal("reply to a deleted session must be discarded")
	}
	if outcome.Reply != nil {
		t.Error("discarded outcome must not carry a reply")
	}
	if c.Pending() {
		t.Error("pending should clear even when discarding")
	}
	if len(c.Sessions()) != 0 {
		t.Error("no session should be resurrected")
	}
}

func TestCurrentPointerIntegrity(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, _ := newTestController(t, client)

	if _, err := c.Send(context.Background(), "first session"); err != nil {
		t.Fatal(err)
	}
	first := c.CurrentID()

	c.NewChat()
	if _, err := c.Send(context.Background(), "second session"); err != nil {
		t.Fatal(err)
	}
	second := c.CurrentID()

	// Deleting a non-current session leaves the pointer alone.
	c.DeleteSession(first)
	if c.CurrentID() != second {
		t.Errorf("pointer = %q, want %q", c.CurrentID(), second)
	}

	// Deleting the current session clears it.
	c.DeleteSession(second)
	if c.CurrentID() != "" {
		t.Errorf("pointer = %q, want empty", c.CurrentID())
	}
	if _, ok := c.Current(); ok {
		t.Error("Current should report no session")
	}
}

func TestSelectSessionUnknownID(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, _ := newTestController(t, client)

	if _, err := c.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	want := c.CurrentID()
	c.SelectSession("no-such-id")
	if c.CurrentID() != want {
		t.Errorf("unknown id changed pointer to %q", c.CurrentID())
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok", Sources: []string{"a.pdf", "b.pdf"}}}
	c, st := newTestController(t, client)

	if _, err := c.Send(context.Background(), "persist me"); err != nil {
		t.Fatal(err)
	}
	before := c.Sessions()

	// A fresh controller over the same store sees identical state.
	c2 := chat.NewController(st, client, nil)
	after := c2.Sessions()
	if len(after) != len(before) {
		t.Fatalf("sessions = %d, want %d", len(after), len(before))
	}
	if after[0].ID != before[0].ID || after[0].Title != before[0].Title {
		t.Errorf("session head = %+v, want %+v", after[0], before[0])
	}
	if len(after[0].Messages) != len(before[0].Messages) {
		t.Fatalf("messages = %d, want %d", len(after[0].Messages), len(before[0].Messages))
	}
	gotSources := after[0].Messages[1].Sources
	if len(gotSources) != 2 || gotSources[0] != "a.pdf" || gotSources[1] != "b.pdf" {
		t.Errorf("sources = %v", gotSources)
	}
	// The reloaded controller starts with no selection.
	if c2.CurrentID() != "" {
		t.Errorf("fresh controller pointer = %q, want empty", c2.CurrentID())
	}
}

func TestCorruptStoreStartsEmpty(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, st := newTestController(t, client)

	if _, err := c.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	st.Corrupt()

	c2 := chat.NewController(st, client, nil)
	if len(c2.Sessions()) != 0 {
		t.Errorf("corrupt store should load as empty, got %d sessions", len(c2.Sessions()))
	}
}

func TestResetClearsDerivedState(t *testing.T) {
	client := &fakeClient{answer: &api.ChatAnswer{Answer: "ok"}}
	c, _ := newTestController(t, client)

	if _, err := c.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if c.CurrentID() == "" {
		t.Fatal("expected a current session")
	}

	c.Reset()
	if c.CurrentID() != "" {
		t.Error("Reset must clear the current pointer")
	}
	if c.Pending() {
		t.Error("Reset must clear pending")
	}
	if len(c.Sessions()) != 1 {
		t.Errorf("Reset should keep persisted sessions, got %d", len(c.Sessions()))
	}
}
