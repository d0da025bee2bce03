package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcphost/host/pkg/models"
)

func TestConvertOpenAIMessages(t *testing.T) {
	messages := []*models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
	}
	out, err := convertOpenAIMessages(messages, "be nice")
	if err != nil {
		t.Fatalf("convertOpenAIMessages: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3 (system + 2 messages)", len(out))
	}
	if out[0].Role != "system" || out[0].Content != "be nice" {
		t.Errorf("system message not prepended correctly: %+v", out[0])
	}
}

func TestConvertOpenAIMessages_UnknownRole(t *testing.T) {
	messages := []*models.Message{{Role: "bogus", Content: "x"}}
	if _, err := convertOpenAIMessages(messages, ""); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestIsRetryableOpenAIError(t *testing.T) {
	cases := map[string]bool{
		"rate limit exceeded":    true,
		"500 internal error":     true,
		"context deadline exceeded": true,
		"invalid api key":        false,
	}
	for msg, want := range cases {
		if got := isRetryableOpenAIError(errors.New(msg)); got != want {
			t.Errorf("isRetryableOpenAIError(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestRetrier_StopsOnNonRetryable(t *testing.T) {
	r := newRetrier(3, time.Millisecond)
	attempts := 0
	err := r.do(context.Background(), func(error) bool { return false }, func() error {
		attempts++
		return errors.New("fatal")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable stops immediately)", attempts)
	}
}

func TestRetrier_RetriesThenSucceeds(t *testing.T) {
	r := newRetrier(3, time.Millisecond)
	attempts := 0
	err := r.do(context.Background(), func(error) bool { return true }, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
