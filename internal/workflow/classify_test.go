package workflow

import (
	"testing"

	"github.com/mcphost/host/internal/logging"
	"github.com/mcphost/host/internal/mcp"
	"github.com/mcphost/host/pkg/models"
)

func TestComplexityGate(t *testing.T) {
	cases := map[string]bool{
		"what is the weather today":                         false,
		"weather in Seoul, Busan, Daegu":                     false, // 2 commas, no keyword, leading clause breaks the word-run
		"Seoul, Busan, Daegu":                                true,  // run of 3 comma-separated single-word tokens
		"compare prices, please":                             true,  // keyword + 1 comma
		"get the weather, then tell me a joke":                false,
		"this, that, the other, and one more":                true,  // 3 commas, bare threshold
		"analyze this, and summarize that, then report it": true,
	}
	for text, want := range cases {
		if got := complexityGate(text); got != want {
			t.Errorf("complexityGate(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestSplitPrefixedLine(t *testing.T) {
	key, value, ok := splitPrefixedLine("INTENT: TOOL_CALL")
	if !ok || key != "INTENT" || value != "TOOL_CALL" {
		t.Errorf("got (%q, %q, %v)", key, value, ok)
	}

	if _, _, ok := splitPrefixedLine("not a prefixed line"); ok {
		t.Error("expected ok=false for unrecognized key")
	}
}

func TestParseIntentKind(t *testing.T) {
	if kind, ok := parseIntentKind("tool_call"); !ok || kind != models.IntentToolCall {
		t.Errorf("parseIntentKind(tool_call) = %v, %v", kind, ok)
	}
	if _, ok := parseIntentKind("bogus"); ok {
		t.Error("expected ok=false for unknown intent")
	}
}

func TestParseClassification_UnknownToolDowngrades(t *testing.T) {
	registry := mcp.NewRegistry(logging.Discard(), 0)
	text := "INTENT: TOOL_CALL\nCONFIDENCE: 0.9\nTARGET_TOOL: ghost_tool\nPARAMETERS: {}\nREASONING: because\n"

	intent := parseClassification(text, registry)
	if intent.Kind != models.IntentGeneralChat {
		t.Errorf("Kind = %v, want GENERAL_CHAT after downgrade", intent.Kind)
	}
	if intent.TargetTool != "" {
		t.Errorf("TargetTool = %q, want cleared", intent.TargetTool)
	}
}

func TestParseClassification_DefaultsOnMalformedConfidence(t *testing.T) {
	text := "INTENT: GENERAL_CHAT\nCONFIDENCE: not-a-number\n"
	registry := mcp.NewRegistry(logging.Discard(), 0)
	intent := parseClassification(text, registry)
	if intent.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want default 0.5", intent.Confidence)
	}
}
