// Package llm defines the provider-agnostic completion interface the
// workflow engine and ReAct controller program against, plus the
// Anthropic, OpenAI, Google and Bedrock adapters that implement it.
package llm

import (
	"context"

	"github.com/mcphost/host/pkg/models"
)

// Provider is one LLM backend. Implementations must be safe for
// concurrent use; the ReAct controller may drive several sessions'
// completions through the same Provider at once.
type Provider interface {
	// Complete streams a completion for req over the returned channel.
	// The channel is closed once the stream ends, errors, or ctx is
	// cancelled.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *Chunk, error)

	// Name identifies the provider for routing and logging.
	Name() string

	// SupportsTools reports whether the provider can be handed Tools in
	// a CompletionRequest.
	SupportsTools() bool
}

// CompletionRequest is a single turn's worth of LLM input.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []*models.Message
	Tools     []ToolSpec
	MaxTokens int
}

// ToolSpec is the LLM-facing shape of one tool: name, description, and
// the JSON Schema the model should use to construct arguments.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema []byte
}

// Chunk is one piece of a streaming completion. Exactly one of Text,
// ToolCall, or Error is meaningful per chunk; Done marks stream end.
type Chunk struct {
	Text         string
	ToolCall     *models.ToolCall
	Done         bool
	Error        error
	InputTokens  int
	OutputTokens int
}
