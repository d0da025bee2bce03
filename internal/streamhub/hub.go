// Package streamhub fans out per-session StreamMessages to at most one
// live subscriber connection, enforcing the single-subscriber invariant,
// backpressure, heartbeats, and an inactivity sweep.
package streamhub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcphost/host/pkg/models"
)

const (
	defaultBufferSize  = 64
	defaultHeartbeat   = 30 * time.Second
	defaultSweepEvery  = 10 * time.Minute
	defaultInactiveTTL = time.Hour
)

// Hub owns every open Stream Connection, indexed both by connection id and
// by session id (at most one live connection per session). Opening a new
// connection for a session that already has one displaces the prior
// connection with a session_end message before closing it.
type Hub struct {
	logger *slog.Logger

	mu        sync.Mutex
	conns     map[string]*Connection // by connection id
	bySession map[string]string      // session id -> connection id

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Hub and starts its heartbeat and inactivity-sweep
// goroutines. Callers must call Shutdown to stop them.
func New(logger *slog.Logger) *Hub {
	h := &Hub{
		logger:    logger,
		conns:     make(map[string]*Connection),
		bySession: make(map[string]string),
		stopChan:  make(chan struct{}),
	}
	h.wg.Add(2)
	go h.heartbeatLoop()
	go h.sweepLoop()
	return h
}

// Connection is one subscriber's non-blocking FIFO of StreamMessages,
// the in-process form of a Stream Connection (SPEC_FULL.md §3).
type Connection struct {
	ID        string
	SessionID string
	CreatedAt time.Time

	messages chan *models.StreamMessage
	active   bool
	lastSend time.Time

	mu sync.Mutex
}

// Open registers a new connection for sessionID, displacing and closing
// any prior connection for the same session (single-subscriber
// invariant, per SPEC_FULL.md §4.8), and returns it.
func (h *Hub) Open(sessionID string) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	if priorID, ok := h.bySession[sessionID]; ok {
		if prior, ok := h.conns[priorID]; ok {
			prior.sendNonBlocking(models.NewStreamMessage(sessionID, models.StreamSessionEnd, "displaced by new connection"))
			prior.markInactive()
			delete(h.conns, priorID)
		}
	}

	conn := &Connection{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now(),
		messages:  make(chan *models.StreamMessage, defaultBufferSize),
		active:    true,
		lastSend:  time.Now(),
	}
	h.conns[conn.ID] = conn
	h.bySession[sessionID] = conn.ID
	conn.sendNonBlocking(models.NewStreamMessage(sessionID, models.StreamSessionStart, ""))
	return conn
}

// SendToSession delivers msg to sessionID's current connection, if one is
// open and active, returning the number of connections it was delivered
// to (0 or 1, since a session has at most one live connection).
func (h *Hub) SendToSession(sessionID string, msg *models.StreamMessage) int {
	h.mu.Lock()
	connID, ok := h.bySession[sessionID]
	var conn *Connection
	if ok {
		conn = h.conns[connID]
	}
	h.mu.Unlock()
	if conn == nil {
		return 0
	}
	return conn.sendNonBlocking(msg)
}

// SendToConnection delivers msg directly to connectionID, bypassing the
// session index. Returns false if the connection is unknown or inactive.
func (h *Hub) SendToConnection(connectionID string, msg *models.StreamMessage) bool {
	h.mu.Lock()
	conn, ok := h.conns[connectionID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	return conn.sendNonBlocking(msg) == 1
}

// Broadcast delivers msg to every open, active connection and returns the
// count of connections it was delivered to.
func (h *Hub) Broadcast(msg *models.StreamMessage) int {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	delivered := 0
	for _, conn := range conns {
		delivered += conn.sendNonBlocking(msg)
	}
	return delivered
}

// Close closes and removes the connection identified by connectionID, if
// any.
func (h *Hub) Close(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connectionID]
	if !ok {
		return
	}
	conn.markInactive()
	delete(h.conns, connectionID)
	if h.bySession[conn.SessionID] == connectionID {
		delete(h.bySession, conn.SessionID)
	}
}

// Shutdown stops the hub's background loops.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.stopChan) })
	h.wg.Wait()
}

// sendNonBlocking enqueues msg, returning 1 if delivered and 0 if the
// connection was inactive or its buffer was full (backpressure: a full
// buffer marks the connection inactive rather than blocking the sender).
func (c *Connection) sendNonBlocking(msg *models.StreamMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0
	}
	select {
	case c.messages <- msg:
		c.lastSend = time.Now()
		return 1
	default:
		c.active = false
		return 0
	}
}

func (c *Connection) markInactive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		c.active = false
		close(c.messages)
	}
}

// Messages returns the channel subscribers should range over.
func (c *Connection) Messages() <-chan *models.StreamMessage {
	return c.messages
}

// Snapshot returns the data-model view of this connection.
func (c *Connection) Snapshot() models.StreamConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.StreamConnection{
		ConnectionID: c.ID,
		SessionID:    c.SessionID,
		InboundQueue: len(c.messages),
		Active:       c.active,
		CreatedAt:    c.CreatedAt,
	}
}

// Connections returns a snapshot of every open connection, for health and
// diagnostic views.
func (h *Hub) Connections() []models.StreamConnection {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	out := make([]models.StreamConnection, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn.Snapshot())
	}
	return out
}

func (h *Hub) heartbeatLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(defaultHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.mu.Lock()
			for _, conn := range h.conns {
				conn.sendNonBlocking(models.NewStreamMessage(conn.SessionID, models.StreamThinking, "").WithMeta("heartbeat", true))
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) sweepLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(defaultSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.conns {
		conn.mu.Lock()
		stale := !conn.active || now.Sub(conn.lastSend) >= defaultInactiveTTL
		conn.mu.Unlock()
		if stale {
			conn.markInactive()
			delete(h.conns, id)
			if h.bySession[conn.SessionID] == id {
				delete(h.bySession, conn.SessionID)
			}
		}
	}
}
