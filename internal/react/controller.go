// Package react implements the ReAct (Reason-Act-Observe) sub-loop: a
// think/act/observe/finalize state machine invoked when the workflow's
// complexity gate judges a turn too multi-part for single-shot
// classification to handle reliably.
package react

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/metrics"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/pkg/models"
)

const (
	defaultMaxIterations = 10
	defaultMaxFailures   = 3
)

// ToolCaller invokes the Tool-Call Node equivalent for the tool_name and
// arguments already populated on state.Intent, appending a Tool Call
// Record to state.ToolCalls. It is injected rather than implemented here
// so the workflow and react packages share one tool-dispatch code path
// without an import cycle between them.
type ToolCaller func(ctx context.Context, state *models.TurnState)

// Controller drives the ReAct sub-loop for one turn.
type Controller struct {
	registry *mcp.Registry
	provider llm.Provider
	hub      *streamhub.Hub
	callTool ToolCaller
	metrics  *metrics.Collector
	logger   *slog.Logger
	model    string

	maxIterations int
	maxFailures   int
}

// NewController constructs a Controller with the defaults from §4.7
// (max 10 iterations, 3 consecutive failures).
func NewController(registry *mcp.Registry, provider llm.Provider, hub *streamhub.Hub, callTool ToolCaller, collector *metrics.Collector, model string, logger *slog.Logger) *Controller {
	return &Controller{
		registry:      registry,
		provider:      provider,
		hub:           hub,
		callTool:      callTool,
		metrics:       collector,
		model:         model,
		logger:        logger,
		maxIterations: defaultMaxIterations,
		maxFailures:   defaultMaxFailures,
	}
}

// Run drives state through think -> act -> observe -> think | finalize
// until finalize produces a response, or the context is cancelled.
func (c *Controller) Run(ctx context.Context, state *models.TurnState) error {
	state.React.Mode = models.ReActThink
	state.React.MaxIterations = c.maxIterations
	state.React.MaxFailures = c.maxFailures

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch state.React.Mode {
		case models.ReActThink:
			c.think(ctx, state)
		case models.ReActAct:
			c.act(ctx, state)
		case models.ReActObserve:
			c.observe(state)
		case models.ReActFinalize:
			c.finalize(ctx, state)
			if c.metrics != nil {
				c.metrics.RecordReActTurn(state.React.Iteration)
			}
			return nil
		default:
			return fmt.Errorf("react: unknown mode %q", state.React.Mode)
		}
	}
}

// think asks the LLM for either a Thought/Action pair or a Final Answer,
// and independently recomputes the remaining-tasks set so a premature
// Final Answer on a multi-subject request cannot end the loop early.
func (c *Controller) think(ctx context.Context, state *models.TurnState) {
	c.hub.SendToSession(state.SessionID, models.NewStreamMessage(state.SessionID, models.StreamThinking, ""))

	thoughtText, err := llm.Collect(ctx, c.provider, &llm.CompletionRequest{
		Model:     c.model,
		System:    thinkSystemPrompt,
		Messages:  c.transcriptMessages(state),
		MaxTokens: 768,
	})
	if err != nil {
		c.logger.Warn("react: think call failed, finalizing early", "error", err)
		state.React.Mode = models.ReActFinalize
		return
	}

	state.React.Thought, state.React.Action, state.React.FinalAnswer = parseThink(thoughtText)

	remaining, err := llm.Collect(ctx, c.provider, &llm.CompletionRequest{
		Model:     c.model,
		System:    remainingTasksPrompt,
		Messages:  []*models.Message{{Role: models.RoleUser, Content: state.CurrentMessage}},
		MaxTokens: 256,
	})
	if err == nil {
		state.React.RemainingTasks = parseRemainingTasks(remaining)
	}

	switch {
	case len(state.React.RemainingTasks) > 0:
		state.React.Mode = models.ReActAct
	case state.React.FinalAnswer != "":
		state.React.Mode = models.ReActFinalize
	case state.React.Action != "":
		state.React.Mode = models.ReActAct
	default:
		state.React.Mode = models.ReActFinalize
	}
}

// act parses the natural-language action into a structured tool call via
// a second LLM call (tolerating phrasing drift), then invokes the shared
// tool-dispatch path.
func (c *Controller) act(ctx context.Context, state *models.TurnState) {
	c.hub.SendToSession(state.SessionID, models.NewStreamMessage(state.SessionID, models.StreamActing, state.React.Action))

	parsed, err := c.parseAction(ctx, state.React.Action)
	if err != nil || parsed.ToolName == "" || parsed.ToolName == "NO_TOOL" {
		state.React.ConsecutiveFailures++
		state.ToolCalls = append(state.ToolCalls, models.ToolCallRecord{
			ToolName: "NO_TOOL",
			Error:    "could not resolve a tool call from the proposed action",
		})
	} else if _, ok := c.registry.Lookup(parsed.ToolName); !ok {
		state.React.ConsecutiveFailures++
		state.ToolCalls = append(state.ToolCalls, models.ToolCallRecord{
			ToolName: parsed.ToolName,
			Error:    "tool not found in live catalogue",
		})
	} else {
		state.Intent = &models.Intent{Kind: models.IntentToolCall, TargetTool: parsed.ToolName, Parameters: parsed.Arguments}
		before := len(state.ToolCalls)
		c.callTool(ctx, state)
		if len(state.ToolCalls) > before && state.ToolCalls[len(state.ToolCalls)-1].IsSuccessful() {
			state.React.ConsecutiveFailures = 0
		} else {
			state.React.ConsecutiveFailures++
		}
	}

	if state.React.ConsecutiveFailures >= state.React.MaxFailures {
		state.React.FinalAnswer = ""
		state.React.Mode = models.ReActFinalize
		return
	}
	state.React.Mode = models.ReActObserve
}

type parsedAction struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Reasoning string         `json:"reasoning"`
}

func (c *Controller) parseAction(ctx context.Context, action string) (parsedAction, error) {
	text, err := llm.Collect(ctx, c.provider, &llm.CompletionRequest{
		Model:  c.model,
		System: actParsePrompt,
		Messages: []*models.Message{
			{Role: models.RoleUser, Content: action},
		},
		MaxTokens: 256,
	})
	if err != nil {
		return parsedAction{}, err
	}

	var parsed parsedAction
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return parsedAction{}, fmt.Errorf("react: no JSON object in action parse response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return parsedAction{}, err
	}
	return parsed, nil
}

// observe appends an observation message and checks the termination
// guards: iteration cap and stuck-loop detection via Jaccard similarity
// of the last two failure observations.
func (c *Controller) observe(state *models.TurnState) {
	last := state.ToolCalls[len(state.ToolCalls)-1]
	var observation string
	if last.IsSuccessful() {
		observation = fmt.Sprintf("관찰: %s", string(last.Result))
	} else {
		observation = fmt.Sprintf("관찰: %s", last.Error)
	}
	state.React.Observation = observation

	obsMsg := &models.Message{
		Role:     models.RoleAssistant,
		Content:  observation,
		Metadata: map[string]any{"react_step": "observe"},
	}
	state.Messages = append(state.Messages, obsMsg)
	c.hub.SendToSession(state.SessionID, models.NewStreamMessage(state.SessionID, models.StreamObserving, observation))

	state.React.Iteration++

	if c.stuckOnRepeatedFailure(state) {
		state.React.Mode = models.ReActFinalize
		return
	}
	if state.React.Iteration >= state.React.MaxIterations {
		state.React.Mode = models.ReActFinalize
		return
	}
	state.React.Mode = models.ReActThink
}

func (c *Controller) stuckOnRepeatedFailure(state *models.TurnState) bool {
	var observeMessages []*models.Message
	for _, m := range state.Messages {
		if m.Metadata != nil && m.Metadata["react_step"] == "observe" {
			observeMessages = append(observeMessages, m)
		}
	}
	if len(observeMessages) < 2 {
		return false
	}
	a := observeMessages[len(observeMessages)-1]
	b := observeMessages[len(observeMessages)-2]
	if !containsFailureMarker(a.Content) || !containsFailureMarker(b.Content) {
		return false
	}
	return jaccardSimilarity(a.Content, b.Content) > 0.8
}

// finalize is the ReAct equivalent of the Responder Node: it synthesizes
// an answer from the accumulated tool-call results, falling back to a
// deterministic concatenation if the LLM call itself fails.
func (c *Controller) finalize(ctx context.Context, state *models.TurnState) {
	req := &llm.CompletionRequest{
		Model:     c.model,
		System:    finalizeSystemPrompt,
		Messages:  c.transcriptMessages(state),
		MaxTokens: 2048,
	}

	text, err := llm.StreamWords(ctx, c.provider, req, func(partial string) {
		c.hub.SendToSession(state.SessionID, models.NewStreamMessage(state.SessionID, models.StreamPartialResponse, partial))
	})
	if err != nil || strings.TrimSpace(text) == "" {
		text = c.fallbackSummary(state)
	}

	state.Response = text
	state.Success = true
}

func (c *Controller) fallbackSummary(state *models.TurnState) string {
	var sb strings.Builder
	sb.WriteString("Here is what I found:\n")
	for _, call := range state.ToolCalls {
		if call.IsSuccessful() {
			fmt.Fprintf(&sb, "- %s: %s\n", call.ToolName, string(call.Result))
		} else {
			fmt.Fprintf(&sb, "- %s: failed (%s)\n", call.ToolName, call.Error)
		}
	}
	return sb.String()
}

func (c *Controller) transcriptMessages(state *models.TurnState) []*models.Message {
	messages := append([]*models.Message(nil), state.Messages...)
	messages = append(messages, &models.Message{Role: models.RoleUser, Content: state.CurrentMessage})
	return messages
}
