package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcphost/host/pkg/models"
)

// server owns the HTTP surface: the request-send and subscribe endpoints
// (§6), plus the ambient /metrics and /healthz endpoints.
type server struct {
	app      *application
	logger   *slog.Logger
	addr     string
	http     *http.Server
	listener net.Listener
}

func newServer(app *application, logger *slog.Logger) (*server, error) {
	reg, err := metricsRegistry(app.collector)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	mux := http.NewServeMux()
	s := &server{app: app, logger: logger}

	mux.HandleFunc("/api/v1/messages", s.handleSendMessage)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)

	addr := addrFromEnv()
	s.addr = addr
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func addrFromEnv() string {
	if v := envOrDefault("MCPHOST_HTTP_ADDR", ""); v != "" {
		return v
	}
	return ":8090"
}

func (s *server) start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

func (s *server) stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// sendMessageRequest is the request-send endpoint's body: a user message
// addressed to a session, with an optional ReAct override (§6).
type sendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	ReactMode *bool  `json:"react_mode,omitempty"`
}

type sendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendMessageResponse{Success: false, Message: "invalid request body"})
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, sendMessageResponse{Success: false, Message: "message and session_id are required"})
		return
	}

	forceReact := req.ReactMode != nil && *req.ReactMode

	if err := s.app.executor.Execute(r.Context(), req.SessionID, req.Message, forceReact); err != nil {
		s.logger.Error("turn execution failed", "session", req.SessionID, "error", err)
		writeJSON(w, http.StatusOK, sendMessageResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{Success: true, Message: "accepted"})
}

// handleStream is the subscribe endpoint: an open, long-lived
// text/event-stream push channel keyed by session_id (§6). Stream
// Messages are serialized as `data: <json>\n\n`; heartbeats (identified
// by the "heartbeat" metadata key the Stream Hub stamps) are rendered as
// bare `: heartbeat\n\n` comment lines instead.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	conn := s.app.hub.Open(sessionID)
	defer s.app.hub.Close(conn.ID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Messages():
			if !ok {
				return
			}
			if isHeartbeat(msg) {
				fmt.Fprint(w, ": heartbeat\n\n")
			} else {
				data, err := json.Marshal(msg)
				if err != nil {
					s.logger.Warn("failed to marshal stream message", "error", err)
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
			}
			flusher.Flush()
		}
	}
}

func isHeartbeat(msg *models.StreamMessage) bool {
	if msg == nil || msg.Metadata == nil {
		return false
	}
	v, ok := msg.Metadata["heartbeat"]
	return ok && v == true
}

type healthzResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	SessionsActive int               `json:"sessions_active"`
	Servers       []serverHealthView `json:"servers"`
}

type serverHealthView struct {
	ServerID  string `json:"server_id"`
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
	ToolCount int     `json:"tool_count"`
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.app.registry.Health()
	views := make([]serverHealthView, 0, len(health))
	status := "ok"
	for _, h := range health {
		views = append(views, serverHealthView{
			ServerID:  h.ServerID,
			Status:    string(h.Status),
			LastError: h.LastError,
			ToolCount: h.ToolCount,
		})
		if string(h.Status) == "down" {
			status = "degraded"
		}
	}

	resp := healthzResponse{
		Status:         status,
		UptimeSeconds:  s.app.collector.Uptime().Seconds(),
		SessionsActive: s.app.sessions.ActiveCount(),
		Servers:        views,
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
