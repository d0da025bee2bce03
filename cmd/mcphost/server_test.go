package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/metrics"
	"github.com/mcphost/host/internal/sessions"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/internal/workflow"
	"github.com/mcphost/host/pkg/models"
)

type fakeProvider struct{ reply string }

func (f *fakeProvider) Name() string        { return "fake" }
func (f *fakeProvider) SupportsTools() bool { return false }
func (f *fakeProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	ch := make(chan *llm.Chunk, 2)
	ch <- &llm.Chunk{Text: f.reply}
	ch <- &llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func newTestApp(t *testing.T) *application {
	t.Helper()
	logger := logging.Discard()
	registry := mcp.NewRegistry(logger, 0)
	store := sessions.NewMemoryStore(sessions.Config{MaxMessages: 50}, logger)
	t.Cleanup(func() { store.Close() })
	hub := streamhub.New(logger)
	t.Cleanup(hub.Shutdown)

	provider := &fakeProvider{reply: "hi back"}
	collector := metrics.NewCollector(store)
	executor := workflow.New(registry, store, provider, hub, collector, "fake-model", logger)

	return &application{
		logger:    logger,
		registry:  registry,
		sessions:  store,
		provider:  provider,
		hub:       hub,
		executor:  executor,
		collector: collector,
		startedAt: time.Now(),
	}
}

func TestHandleSendMessage_RejectsMissingFields(t *testing.T) {
	srv, err := newServer(newTestApp(t), logging.Discard())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"message":""}`))
	w := httptest.NewRecorder()
	srv.handleSendMessage(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp sendMessageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("expected success = false")
	}
}

func TestHandleSendMessage_AcceptsValidTurn(t *testing.T) {
	srv, err := newServer(newTestApp(t), logging.Discard())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"message":"hi","session_id":"s1"}`))
	w := httptest.NewRecorder()
	srv.handleSendMessage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp sendMessageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success = true, got message %q", resp.Message)
	}
}

func TestHandleHealthz_EmptyCatalogueIsOK(t *testing.T) {
	srv, err := newServer(newTestApp(t), logging.Discard())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.handleHealthz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp healthzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestIsHeartbeat(t *testing.T) {
	plain := models.NewStreamMessage("s1", models.StreamThinking, "")
	if isHeartbeat(plain) {
		t.Error("plain message should not be a heartbeat")
	}
	beat := models.NewStreamMessage("s1", models.StreamThinking, "").WithMeta("heartbeat", true)
	if !isHeartbeat(beat) {
		t.Error("tagged message should be a heartbeat")
	}
}
