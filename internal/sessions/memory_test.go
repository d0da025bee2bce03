package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/pkg/models"
)

func newTestStore(cfg Config) *MemoryStore {
	return NewMemoryStore(cfg, logging.Discard())
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()
	ctx := context.Background()

	session, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if session.ID != "s1" {
		t.Errorf("ID = %q, want s1", session.ID)
	}

	again, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate (second): %v", err)
	}
	if again.CreatedAt != session.CreatedAt {
		t.Errorf("GetOrCreate should return the existing session, not recreate it")
	}
}

func TestMemoryStore_AppendMessage_UnknownSession(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()

	err := s.AppendMessage(context.Background(), "missing", &models.Message{Role: models.RoleUser, Content: "hi"})
	if err == nil {
		t.Fatal("expected error appending to unknown session")
	}
}

func TestMemoryStore_OverflowRewrite(t *testing.T) {
	cfg := Config{MaxMessages: 6}
	s := newTestStore(cfg)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	first := &models.Message{ID: "m0", Role: models.RoleUser, Content: "first message"}
	if err := s.AppendMessage(ctx, "s1", first); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	for i := 1; i < 10; i++ {
		msg := &models.Message{ID: string(rune('a' + i)), Role: models.RoleAssistant, Content: "reply"}
		if err := s.AppendMessage(ctx, "s1", msg); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
	}

	session, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	want := cfg.KeepTail() + 1
	if len(session.Messages) != want {
		t.Fatalf("len(Messages) = %d, want %d", len(session.Messages), want)
	}
	if session.Messages[0].ID != "m0" {
		t.Errorf("Messages[0].ID = %q, want m0 (first user message preserved)", session.Messages[0].ID)
	}
}

func TestMemoryStore_IdleEviction(t *testing.T) {
	cfg := Config{MaxMessages: 50, IdleTimeout: 10 * time.Millisecond, CleanupInterval: 5 * time.Millisecond}
	s := newTestStore(cfg)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "idle1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := s.Get(ctx, "idle1"); err != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session was not evicted within the deadline")
}

func TestMemoryStore_ActiveCount(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()
	ctx := context.Background()

	if got := s.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount = %d, want 0", got)
	}
	s.GetOrCreate(ctx, "s1")
	s.GetOrCreate(ctx, "s2")
	if got := s.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
}

func TestMemoryStore_UpdateContext(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := s.UpdateContext(ctx, "s1", map[string]any{"last_tool": "search"}); err != nil {
		t.Fatalf("UpdateContext: %v", err)
	}
	session, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.Context["last_tool"] != "search" {
		t.Errorf("Context[last_tool] = %v, want search", session.Context["last_tool"])
	}

	if err := s.UpdateContext(ctx, "s1", map[string]any{"last_tool": nil, "last_tool_error": "boom"}); err != nil {
		t.Fatalf("UpdateContext (second): %v", err)
	}
	session, _ = s.Get(ctx, "s1")
	if _, ok := session.Context["last_tool"]; ok {
		t.Error("expected last_tool to be deleted by a nil patch value")
	}
	if session.Context["last_tool_error"] != "boom" {
		t.Errorf("Context[last_tool_error] = %v, want boom", session.Context["last_tool_error"])
	}
}

func TestMemoryStore_UpdateContext_UnknownSession(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()

	if err := s.UpdateContext(context.Background(), "missing", map[string]any{"k": "v"}); err == nil {
		t.Fatal("expected error updating context of unknown session")
	}
}

func TestMemoryStore_Touch(t *testing.T) {
	s := newTestStore(Config{MaxMessages: 50})
	defer s.Close()
	ctx := context.Background()

	session, _ := s.GetOrCreate(ctx, "s1")
	original := session.LastAccess
	time.Sleep(time.Millisecond)

	if err := s.Touch(ctx, "s1"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	updated, _ := s.Get(ctx, "s1")
	if !updated.LastAccess.After(original) {
		t.Errorf("Touch did not advance LastAccess")
	}
}
