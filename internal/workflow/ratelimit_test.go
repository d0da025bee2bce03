package workflow

import (
	"context"
	"testing"
	"time"
)

func TestClassifierLimiter_PerSessionIsolation(t *testing.T) {
	l := newClassifierLimiter(1) // 1/min, burst 1

	if err := l.wait(context.Background(), "s1"); err != nil {
		t.Fatalf("wait(s1): %v", err)
	}

	// A different session has its own bucket and should not be starved by
	// s1 having already spent its one token.
	if err := l.wait(context.Background(), "s2"); err != nil {
		t.Fatalf("wait(s2): %v", err)
	}
}

func TestClassifierLimiter_BlocksBeyondBurst(t *testing.T) {
	l := newClassifierLimiter(1) // 1/min, burst 1

	if err := l.wait(context.Background(), "s1"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.wait(ctx, "s1"); err == nil {
		t.Error("expected second wait on the same session to block past the deadline and return an error")
	}
}
