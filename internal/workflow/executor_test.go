package workflow

import (
	"context"
	"testing"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/sessions"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/pkg/models"
)

// fakeProvider returns a fixed reply regardless of the request, enough to
// drive the Executor end to end without a network call.
type fakeProvider struct {
	reply string
}

func (f *fakeProvider) Name() string        { return "fake" }
func (f *fakeProvider) SupportsTools() bool { return false }
func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	ch := make(chan *llm.Chunk, 2)
	ch <- &llm.Chunk{Text: f.reply}
	ch <- &llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func TestExecutor_SimpleChatAgainstEmptyCatalogue(t *testing.T) {
	logger := logging.Discard()
	registry := mcp.NewRegistry(logger, 0)
	store := sessions.NewMemoryStore(sessions.Config{MaxMessages: 50}, logger)
	defer store.Close()
	hub := streamhub.New(logger)
	defer hub.Shutdown()

	// Unrecognized classifier text degrades to GENERAL_CHAT per
	// parseClassification's graceful-failure contract, so one fixed reply
	// drives both the classifier call and the Responder Node's stream.
	provider := &fakeProvider{reply: "hello there"}
	e := New(registry, store, provider, hub, nil, "fake-model", logger)

	conn := hub.Open("s1")

	if err := e.Execute(context.Background(), "s1", "hello", false); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	session, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 (user + assistant)", len(session.Messages))
	}

	var sawFinal bool
	for {
		select {
		case msg := <-conn.Messages():
			if msg.Type == models.StreamFinalResponse {
				sawFinal = true
			}
		default:
			if sawFinal {
				return
			}
			t.Fatal("did not observe a final_response stream message")
		}
	}
}

func TestExecutor_ForceReactBypassesClassifier(t *testing.T) {
	logger := logging.Discard()
	registry := mcp.NewRegistry(logger, 0)
	store := sessions.NewMemoryStore(sessions.Config{MaxMessages: 50}, logger)
	defer store.Close()
	hub := streamhub.New(logger)
	defer hub.Shutdown()

	provider := &fakeProvider{reply: "Final Answer: done, nothing to do"}
	e := New(registry, store, provider, hub, nil, "fake-model", logger)

	if err := e.Execute(context.Background(), "s2", "compare nothing", true); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	session, err := store.Get(context.Background(), "s2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(session.Messages) < 2 {
		t.Fatalf("expected at least a user and assistant message, got %d", len(session.Messages))
	}
}
