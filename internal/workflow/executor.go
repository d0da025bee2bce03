// Package workflow sequences one chat turn through the intent-parse →
// tool-call → respond state machine, including the conditional edge into
// the ReAct sub-loop for multi-subject requests. The graph the original
// system builds with conditional edges and callable nodes is flattened
// here to a dispatch loop over TurnState.NextStep; each node is a method
// that mutates the shared state in place.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/internal/metrics"
	"github.com/mcphost/host/internal/react"
	"github.com/mcphost/host/internal/sessions"
	"github.com/mcphost/host/internal/streamhub"
	"github.com/mcphost/host/pkg/models"
)

// defaultMaxSteps guards against a cycle in NextStep assignment turning a
// single turn into an infinite dispatch loop; no legitimate turn needs
// anywhere near this many node hops.
const defaultMaxSteps = 25

// Executor drives one turn at a time through the workflow nodes. It is
// safe for concurrent use across sessions; all per-turn state lives on
// the TurnState it constructs, not on the Executor itself.
type Executor struct {
	registry *mcp.Registry
	sessions sessions.Store
	provider llm.Provider
	hub      *streamhub.Hub
	react    *react.Controller
	metrics  *metrics.Collector
	logger   *slog.Logger
	model    string

	classifyLimiter *classifierLimiter
}

// New constructs an Executor together with its ReAct controller, wiring
// the controller's tool dispatch back through the Executor's own
// callTool method so both branches share one code path for the Tool-Call
// Node contract.
func New(registry *mcp.Registry, store sessions.Store, provider llm.Provider, hub *streamhub.Hub, collector *metrics.Collector, model string, logger *slog.Logger) *Executor {
	e := &Executor{
		registry:        registry,
		sessions:        store,
		provider:        provider,
		hub:             hub,
		metrics:         collector,
		model:           model,
		logger:          logger,
		classifyLimiter: newClassifierLimiter(defaultClassifierRPM),
	}
	e.react = react.NewController(registry, provider, hub, e.callTool, collector, model, logger)
	return e
}

// Execute runs the full control flow for one user message: append to the
// Session Store, classify intent, dispatch through nodes until
// NextStep reaches completed, append the assistant reply, and emit the
// final stream event. forceReact bypasses the complexity gate and Intent
// Classifier Node, routing straight to react_think, mirroring the
// request-send endpoint's optional react_mode flag (§6).
func (e *Executor) Execute(ctx context.Context, sessionID, text string, forceReact bool) error {
	session, err := e.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("workflow: get or create session: %w", err)
	}

	userMsg := &models.Message{ID: uuid.NewString(), Role: models.RoleUser, Content: text, Timestamp: time.Now()}
	if err := e.sessions.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return fmt.Errorf("workflow: append user message: %w", err)
	}

	state := &models.TurnState{
		CurrentMessage: text,
		SessionID:      sessionID,
		Messages:       append([]*models.Message(nil), session.Messages...),
	}

	if forceReact {
		state.Intent = &models.Intent{Kind: models.IntentToolCall, Confidence: 1, RawArgsText: text}
		state.NextStep = models.StepReactThink
	} else if err := e.classifyIntent(ctx, state); err != nil {
		e.publishError(sessionID, err)
		return err
	}

	for state.NextStep != models.StepCompleted {
		state.StepCount++
		if state.StepCount > defaultMaxSteps {
			err := fmt.Errorf("workflow: exceeded %d node dispatches for session %q", defaultMaxSteps, sessionID)
			e.publishError(sessionID, err)
			return err
		}

		switch state.NextStep {
		case models.StepToolCall:
			e.hub.SendToSession(sessionID, models.NewStreamMessage(sessionID, models.StreamToolCall, state.Intent.TargetTool))
			e.callTool(ctx, state)
			state.NextStep = models.StepRespond

		case models.StepRespond:
			e.respond(ctx, state)
			state.NextStep = models.StepCompleted

		case models.StepReactThink:
			if e.react == nil {
				err := fmt.Errorf("workflow: react_think requested but no ReAct controller is configured")
				e.publishError(sessionID, err)
				return err
			}
			if err := e.react.Run(ctx, state); err != nil {
				e.publishError(sessionID, err)
				return err
			}
			state.NextStep = models.StepCompleted

		default:
			err := fmt.Errorf("workflow: unknown next_step %q", state.NextStep)
			e.publishError(sessionID, err)
			return err
		}
	}

	if state.Response != "" {
		assistantMsg := &models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: state.Response, Timestamp: time.Now()}
		if err := e.sessions.AppendMessage(ctx, sessionID, assistantMsg); err != nil {
			return fmt.Errorf("workflow: append assistant message: %w", err)
		}
	}

	e.hub.SendToSession(sessionID, models.NewStreamMessage(sessionID, models.StreamFinalResponse, state.Response))
	return nil
}

func (e *Executor) publishError(sessionID string, err error) {
	e.hub.SendToSession(sessionID, models.NewStreamMessage(sessionID, models.StreamError, err.Error()))
	e.logger.Error("turn failed", "session", sessionID, "error", err)
}
