package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/pkg/models"
)

const responderSystemPrompt = `You are a helpful assistant embedded in a tool-using chat host.
Respond in markdown, matching the language the user wrote in. Use the
conversation history and any tool results provided to ground your answer;
do not invent tool names or results that were not given to you.`

// respond is the Responder Node (§4.6). Tool catalogue questions are
// answered directly from the registry rather than through an LLM, since
// paraphrasing the authoritative catalogue risks hallucinated tool names.
func (e *Executor) respond(ctx context.Context, state *models.TurnState) {
	switch state.Intent.Kind {
	case models.IntentToolList:
		state.Response = e.renderToolList()
		state.Success = true
		return
	case models.IntentServerStatus:
		state.Response = e.renderServerStatus()
		state.Success = true
		return
	case models.IntentHelp:
		state.Response = e.renderHelp()
		state.Success = true
		return
	}

	req := e.buildResponderRequest(state)
	text, err := llm.StreamWords(ctx, e.provider, req, func(partial string) {
		e.hub.SendToSession(state.SessionID, models.NewStreamMessage(state.SessionID, models.StreamPartialResponse, partial))
	})
	if err != nil {
		state.Error = err
		state.Response = text
		return
	}
	state.Response = text
	state.Success = true
}

func (e *Executor) buildResponderRequest(state *models.TurnState) *llm.CompletionRequest {
	messages := append([]*models.Message(nil), state.Messages...)

	var userContent strings.Builder
	userContent.WriteString(state.CurrentMessage)
	for _, call := range state.ToolCalls {
		if call.IsSuccessful() {
			fmt.Fprintf(&userContent, "\n\n%s(%v) -> %s", call.ToolName, call.Arguments, string(call.Result))
		} else {
			fmt.Fprintf(&userContent, "\n\n%s(%v) failed: %s", call.ToolName, call.Arguments, call.Error)
		}
	}
	messages = append(messages, &models.Message{Role: models.RoleUser, Content: userContent.String()})

	return &llm.CompletionRequest{
		Model:     e.model,
		System:    responderSystemPrompt,
		Messages:  messages,
		MaxTokens: 2048,
	}
}

func (e *Executor) renderToolList() string {
	tools := e.registry.Tools()
	if len(tools) == 0 {
		return "No tools are currently registered."
	}
	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, tool := range tools {
		fmt.Fprintf(&sb, "- **%s** (%s): %s\n", tool.Name, tool.ServerID, tool.Description)
	}
	return sb.String()
}

func (e *Executor) renderServerStatus() string {
	health := e.registry.Health()
	if len(health) == 0 {
		return "No MCP servers are configured."
	}
	var sb strings.Builder
	sb.WriteString("Server status:\n")
	for _, h := range health {
		fmt.Fprintf(&sb, "- **%s**: %s (%d tools)", h.ServerID, h.Status, h.ToolCount)
		if h.LastError != "" {
			fmt.Fprintf(&sb, " (last error: %s)", h.LastError)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (e *Executor) renderHelp() string {
	return "Ask me to use a tool, list available tools, or check server status. " +
		"I can chain multiple tool calls together for requests that touch more than one subject."
}
