package workflow

import (
	"context"
	"testing"

	"github.com/mcphost/host/pkg/models"
)

func TestCallTool_UnknownToolRecordsError(t *testing.T) {
	e, _ := newTestExecutor(t, "")
	state := &models.TurnState{
		SessionID: "s1",
		Intent:    &models.Intent{Kind: models.IntentToolCall, TargetTool: "does_not_exist"},
	}

	e.callTool(context.Background(), state)

	if len(state.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(state.ToolCalls))
	}
	if state.ToolCalls[0].Error == "" {
		t.Error("expected an error recorded for an unregistered tool")
	}
}
