package workflow

import (
	"context"

	"github.com/mcphost/host/internal/coercer"
	"github.com/mcphost/host/pkg/models"
)

// callTool is the Tool-Call Node (§4.5). It always appends a Tool Call
// Record to state.ToolCalls, whether the call succeeds or fails: failures
// are not retried here, they flow to the responder as observation
// material, per the "LLM is the error handler of last resort" principle.
func (e *Executor) callTool(ctx context.Context, state *models.TurnState) {
	intent := state.Intent
	desc, ok := e.registry.Lookup(intent.TargetTool)
	if !ok {
		state.ToolCalls = append(state.ToolCalls, models.ToolCallRecord{
			ToolName: intent.TargetTool,
			Error:    "tool not found in live catalogue",
		})
		return
	}

	args := intent.Parameters
	if args == nil {
		args = coercer.Coerce(intent.RawArgsText, desc)
	}
	if err := coercer.Validate(args, desc); err != nil {
		e.logger.Warn("tool arguments failed schema validation, dispatching anyway", "tool", desc.Name, "error", err)
	}

	record, err := e.registry.CallTool(ctx, state.SessionID, desc.Name, args)
	if record == nil {
		record = &models.ToolCallRecord{ServerID: desc.ServerID, ToolName: desc.Name, Arguments: args}
	}
	if err != nil && record.Error == "" {
		record.Error = err.Error()
	}
	state.ToolCalls = append(state.ToolCalls, *record)
	if e.metrics != nil {
		e.metrics.RecordToolCall(record.Error != "")
	}

	patch := map[string]any{"last_tool": desc.Name}
	if record.Error != "" {
		patch["last_tool_error"] = record.Error
	} else {
		patch["last_tool_error"] = nil
	}
	if err := e.sessions.UpdateContext(ctx, state.SessionID, patch); err != nil {
		e.logger.Warn("failed to update session context after tool call", "session", state.SessionID, "error", err)
	}
}
