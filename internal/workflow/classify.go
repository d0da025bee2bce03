package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcphost/host/internal/llm"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/pkg/models"
)

var complexityKeywords = []string{"compare", "analyze", "report", "each", "all", "several"}

// complexityGate implements §4.4's heuristic for unconditionally routing a
// turn into the ReAct controller instead of trusting single-shot
// classification, which reliably drops items from multi-subject requests.
// It fires on any of: ≥3 commas, ≥1 keyword together with ≥1 comma, or a
// run of ≥3 comma-separated single-word tokens (e.g. "apples, bananas,
// cherries").
func complexityGate(text string) bool {
	commas := strings.Count(text, ",")
	if commas >= 3 {
		return true
	}
	if commas >= 1 {
		lower := strings.ToLower(text)
		for _, kw := range complexityKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return hasCommaSeparatedWordRun(text, 3)
}

// hasCommaSeparatedWordRun reports whether splitting text on "," yields a
// run of at least n consecutive parts that are each a single whitespace-
// free word.
func hasCommaSeparatedWordRun(text string, n int) bool {
	parts := strings.Split(text, ",")
	run := 0
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" && !strings.ContainsAny(trimmed, " \t\n") {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// classifyIntent is the Intent Classifier Node (§4.4): a single-shot LLM
// call yielding {intent, target_tool, raw_args, confidence}, gated by the
// complexity heuristic above.
func (e *Executor) classifyIntent(ctx context.Context, state *models.TurnState) error {
	if complexityGate(state.CurrentMessage) {
		state.Intent = &models.Intent{Kind: models.IntentToolCall, Confidence: 1, RawArgsText: state.CurrentMessage}
		state.NextStep = models.StepReactThink
		return nil
	}

	if err := e.classifyLimiter.wait(ctx, state.SessionID); err != nil {
		return fmt.Errorf("workflow: classifier rate limit: %w", err)
	}

	req := &llm.CompletionRequest{
		Model:     e.model,
		System:    e.classifierSystemPrompt(),
		Messages:  []*models.Message{{Role: models.RoleUser, Content: state.CurrentMessage}},
		MaxTokens: 512,
	}

	text, err := llm.Collect(ctx, e.provider, req)
	if err != nil {
		return fmt.Errorf("workflow: classify intent: %w", err)
	}

	intent := parseClassification(text, e.registry)
	state.Intent = intent

	if intent.IsMCPAction() {
		state.NextStep = models.StepToolCall
	} else {
		state.NextStep = models.StepRespond
	}
	return nil
}

func (e *Executor) classifierSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier for a tool-using assistant. Classify the user's message as one of: ")
	sb.WriteString("TOOL_CALL, GENERAL_CHAT, HELP, SERVER_STATUS, TOOL_LIST.\n\n")
	sb.WriteString("Available tools:\n")
	for _, tool := range e.registry.Tools() {
		fmt.Fprintf(&sb, "- %s: %s\n", tool.Name, tool.Description)
	}
	sb.WriteString("\nRespond with exactly these lines:\n")
	sb.WriteString("INTENT: <one of the kinds above>\n")
	sb.WriteString("CONFIDENCE: <0.0-1.0>\n")
	sb.WriteString("TARGET_TOOL: <tool name, or NONE>\n")
	sb.WriteString("PARAMETERS: <JSON object of arguments, or {}>\n")
	sb.WriteString("REASONING: <one sentence>\n")
	return sb.String()
}

// parseClassification extracts the five prefixed fields by line scan.
// Parse failures degrade gracefully rather than failing the turn: an
// unrecognized intent becomes GENERAL_CHAT, a bad confidence becomes 0.5,
// and an unrecognized target tool downgrades the intent.
func parseClassification(text string, registry *mcp.Registry) *models.Intent {
	intent := &models.Intent{Kind: models.IntentGeneralChat, Confidence: 0.5}

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitPrefixedLine(line)
		if !ok {
			continue
		}
		switch key {
		case "INTENT":
			if kind, ok := parseIntentKind(value); ok {
				intent.Kind = kind
			} else {
				intent.Kind = models.IntentGeneralChat
				intent.Confidence = 0.3
			}
		case "CONFIDENCE":
			if conf, err := strconv.ParseFloat(value, 64); err == nil {
				intent.Confidence = conf
			}
		case "TARGET_TOOL":
			if value != "" && !strings.EqualFold(value, "NONE") {
				intent.TargetTool = value
			}
		case "PARAMETERS":
			var params map[string]any
			if err := json.Unmarshal([]byte(value), &params); err == nil {
				intent.Parameters = params
			}
			intent.RawArgsText = value
		}
	}

	if intent.TargetTool != "" {
		if _, ok := registry.Lookup(intent.TargetTool); !ok {
			intent.Kind = models.IntentGeneralChat
			intent.TargetTool = ""
		}
	}
	return intent
}

func splitPrefixedLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToUpper(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	switch key {
	case "INTENT", "CONFIDENCE", "TARGET_TOOL", "PARAMETERS", "REASONING":
		return key, value, true
	default:
		return "", "", false
	}
}

func parseIntentKind(value string) (models.IntentKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(models.IntentToolCall):
		return models.IntentToolCall, true
	case string(models.IntentGeneralChat):
		return models.IntentGeneralChat, true
	case string(models.IntentHelp):
		return models.IntentHelp, true
	case string(models.IntentServerStatus):
		return models.IntentServerStatus, true
	case string(models.IntentToolList):
		return models.IntentToolList, true
	default:
		return models.IntentUnknown, false
	}
}
