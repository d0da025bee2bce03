package models

import "encoding/json"

// ToolCall is an LLM's request to invoke a named tool with the given raw
// JSON arguments, before those arguments have been coerced against the
// tool's schema.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolCallRecord captures one invocation of a tool against an MCP server,
// including the raw JSON-RPC frames for audit. Exactly one of Result/Error
// is set once DurationMs is populated.
type ToolCallRecord struct {
	ServerID            string          `json:"server_id"`
	ToolName            string          `json:"tool_name"`
	Arguments           map[string]any  `json:"arguments"`
	Result              json.RawMessage `json:"result,omitempty"`
	Error               string          `json:"error,omitempty"`
	DurationMs          int64           `json:"duration_ms"`
	JSONRPCRequestText  string          `json:"jsonrpc_request_text,omitempty"`
	JSONRPCResponseText string          `json:"jsonrpc_response_text,omitempty"`
}

// IsSuccessful reports whether the call completed without error and
// produced a result.
func (r *ToolCallRecord) IsSuccessful() bool {
	return r.Error == "" && len(r.Result) > 0
}
