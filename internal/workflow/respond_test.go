package workflow

import (
	"context"
	"testing"

	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/sessions"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/pkg/models"
)

func newTestExecutor(t *testing.T, reply string) (*Executor, *streamhub.Hub) {
	t.Helper()
	logger := logging.Discard()
	registry := mcp.NewRegistry(logger, 0)
	store := sessions.NewMemoryStore(sessions.Config{MaxMessages: 50}, logger)
	t.Cleanup(func() { store.Close() })
	hub := streamhub.New(logger)
	t.Cleanup(hub.Shutdown)

	e := New(registry, store, &fakeProvider{reply: reply}, hub, nil, "fake-model", logger)
	return e, hub
}

func TestRespond_ToolListShortCircuitsWithoutLLM(t *testing.T) {
	e, _ := newTestExecutor(t, "")
	state := &models.TurnState{SessionID: "s1", Intent: &models.Intent{Kind: models.IntentToolList}}

	e.respond(context.Background(), state)

	if !state.Success {
		t.Fatal("expected Success = true")
	}
	if state.Response != "No tools are currently registered." {
		t.Errorf("Response = %q", state.Response)
	}
}

func TestRespond_ServerStatusShortCircuitsWithoutLLM(t *testing.T) {
	e, _ := newTestExecutor(t, "")
	state := &models.TurnState{SessionID: "s1", Intent: &models.Intent{Kind: models.IntentServerStatus}}

	e.respond(context.Background(), state)

	if state.Response != "No MCP servers are configured." {
		t.Errorf("Response = %q", state.Response)
	}
}

func TestRespond_GeneralChatStreamsThroughProvider(t *testing.T) {
	e, _ := newTestExecutor(t, "hi back")
	state := &models.TurnState{SessionID: "s1", CurrentMessage: "hi", Intent: &models.Intent{Kind: models.IntentGeneralChat}}

	e.respond(context.Background(), state)

	if !state.Success {
		t.Fatalf("expected Success = true, got error %v", state.Error)
	}
	if state.Response != "hi back" {
		t.Errorf("Response = %q, want %q", state.Response, "hi back")
	}
}
