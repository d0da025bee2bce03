package streamhub

import (
	"testing"
	"time"

	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/pkg/models"
)

func TestHub_OpenSendsSessionStart(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	conn := h.Open("s1")
	select {
	case msg := <-conn.Messages():
		if msg.Type != models.StreamSessionStart {
			t.Errorf("first message type = %q, want %q", msg.Type, models.StreamSessionStart)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session_start")
	}
}

func TestHub_SendToSession(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	conn := h.Open("s1")
	<-conn.Messages() // drain session_start

	if n := h.SendToSession("s1", models.NewStreamMessage("s1", models.StreamFinalResponse, "done")); n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}

	select {
	case msg := <-conn.Messages():
		if msg.Content != "done" {
			t.Errorf("Content = %q, want done", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestHub_SendToConnection(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	conn := h.Open("s1")
	<-conn.Messages() // drain session_start

	if ok := h.SendToConnection(conn.ID, models.NewStreamMessage("s1", models.StreamFinalResponse, "direct")); !ok {
		t.Fatal("expected delivery to known connection id")
	}

	select {
	case msg := <-conn.Messages():
		if msg.Content != "direct" {
			t.Errorf("Content = %q, want direct", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered message")
	}

	if ok := h.SendToConnection("unknown-id", models.NewStreamMessage("s1", models.StreamError, "x")); ok {
		t.Error("expected false for unknown connection id")
	}
}

func TestHub_Broadcast(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	c1 := h.Open("s1")
	c2 := h.Open("s2")
	<-c1.Messages() // drain session_start
	<-c2.Messages()

	if n := h.Broadcast(models.NewStreamMessage("", models.StreamThinking, "tick")); n != 2 {
		t.Errorf("broadcast delivered = %d, want 2", n)
	}
}

func TestHub_OpenDisplacesPriorConnection(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	first := h.Open("s1")
	<-first.Messages() // session_start

	h.Open("s1")

	select {
	case msg, ok := <-first.Messages():
		if ok && msg.Type != models.StreamSessionEnd {
			t.Errorf("expected session_end or closed channel, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for displacement")
	}
}

func TestHub_SendToUnknownSessionIsNoop(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	if n := h.SendToSession("missing", models.NewStreamMessage("missing", models.StreamError, "x")); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestHub_CloseIsKeyedByConnectionID(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	conn := h.Open("s1")
	<-conn.Messages() // drain session_start

	h.Close(conn.ID)

	if n := h.SendToSession("s1", models.NewStreamMessage("s1", models.StreamFinalResponse, "x")); n != 0 {
		t.Errorf("delivered = %d after close, want 0", n)
	}
	if len(h.Connections()) != 0 {
		t.Error("expected no connections after close")
	}
}

func TestHub_BackpressureMarksInactive(t *testing.T) {
	h := New(logging.Discard())
	defer h.Shutdown()

	conn := h.Open("s1")
	<-conn.Messages() // drain session_start

	for i := 0; i < defaultBufferSize+5; i++ {
		h.SendToSession("s1", models.NewStreamMessage("s1", models.StreamPartialResponse, "x"))
	}

	conn.mu.Lock()
	active := conn.active
	conn.mu.Unlock()
	if active {
		t.Error("connection should be marked inactive after buffer overflow")
	}
}
