package hosterror

import (
	"errors"
	"fmt"
	"testing"
)

func TestHostError_Error(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindToolTimeout, "mcp.CallTool", cause)

	got := err.Error()
	want := "mcp.CallTool: boom: boom"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHostError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindProvider, "llm.Complete", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestWrap_NilCause(t *testing.T) {
	if Wrap(KindInternal, "op", nil) != nil {
		t.Errorf("Wrap with nil cause should return nil")
	}
}

func TestKindOf(t *testing.T) {
	inner := New(KindToolNotFound, "registry.Dispatch", "no server registers tool")
	outer := fmt.Errorf("turn failed: %w", inner)

	if got := KindOf(outer); got != KindToolNotFound {
		t.Errorf("KindOf(outer) = %q, want %q", got, KindToolNotFound)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
}

func TestKind_IsRetryable(t *testing.T) {
	cases := map[Kind]bool{
		KindToolTimeout:      true,
		KindToolExecution:    true,
		KindArgumentCoercion: true,
		KindSubprocessDown:   false,
		KindToolNotFound:     false,
		KindConfig:           false,
	}
	for kind, want := range cases {
		if got := kind.IsRetryable(); got != want {
			t.Errorf("%s.IsRetryable() = %v, want %v", kind, got, want)
		}
	}
}
