package models

import "time"

// StreamMessageType enumerates the event vocabulary pushed to a session's
// subscriber over the course of a turn.
type StreamMessageType string

const (
	StreamSessionStart     StreamMessageType = "session_start"
	StreamThinking         StreamMessageType = "thinking"
	StreamActing           StreamMessageType = "acting"
	StreamObserving        StreamMessageType = "observing"
	StreamToolCall         StreamMessageType = "tool_call"
	StreamPartialResponse  StreamMessageType = "partial_response"
	StreamFinalResponse    StreamMessageType = "final_response"
	StreamError            StreamMessageType = "error"
	StreamSessionEnd       StreamMessageType = "session_end"
)

// StreamMessage is the wire-agnostic event emitted by a turn. The
// transport layer (out of scope here) is responsible for serializing it
// to a text/event-stream record.
type StreamMessage struct {
	Type      StreamMessageType `json:"type"`
	Content   string            `json:"content,omitempty"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewStreamMessage stamps a message with its session id and the current
// time.
func NewStreamMessage(sessionID string, typ StreamMessageType, content string) *StreamMessage {
	return &StreamMessage{
		Type:      typ,
		Content:   content,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
}

// WithMeta attaches a metadata key, returning the message for chaining.
func (m *StreamMessage) WithMeta(key string, value any) *StreamMessage {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
	return m
}

// StreamConnection is the data-model view of one subscriber's live
// connection to the Stream Hub: a session's inbound queue depth, whether
// it is still accepting deliveries, and when it was opened. The Stream
// Hub holds the live connection state; this is the snapshot it reports
// out (health views, connection listings) without leaking its internals.
type StreamConnection struct {
	ConnectionID string    `json:"connection_id"`
	SessionID    string    `json:"session_id"`
	InboundQueue int       `json:"inbound_queue"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
