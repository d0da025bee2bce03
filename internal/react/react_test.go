package react

import "testing"

func TestJaccardSimilarity(t *testing.T) {
	a := "tool lookup failed for weather service"
	b := "tool lookup failed for weather service"
	if sim := jaccardSimilarity(a, b); sim != 1 {
		t.Errorf("identical strings similarity = %v, want 1", sim)
	}

	c := "completely unrelated text about cooking"
	if sim := jaccardSimilarity(a, c); sim > 0.2 {
		t.Errorf("unrelated strings similarity = %v, want near 0", sim)
	}

	if sim := jaccardSimilarity("", "something"); sim != 0 {
		t.Errorf("empty string similarity = %v, want 0", sim)
	}
}

func TestContainsFailureMarker(t *testing.T) {
	if !containsFailureMarker("tool call failed: timeout") {
		t.Error("expected failure marker to be detected")
	}
	if containsFailureMarker("the weather is sunny today") {
		t.Error("expected no failure marker")
	}
}

func TestParseThink_FinalAnswer(t *testing.T) {
	text := "Final Answer: The weather in Seoul is sunny.\nEnjoy your day."
	thought, action, final := parseThink(text)
	if thought != "" || action != "" {
		t.Errorf("thought=%q action=%q, want both empty", thought, action)
	}
	if final == "" {
		t.Error("expected non-empty final answer")
	}
}

func TestParseThink_ThoughtAction(t *testing.T) {
	text := "Thought: I should check the weather.\nAction: get_weather for Seoul"
	thought, action, final := parseThink(text)
	if thought != "I should check the weather." {
		t.Errorf("thought = %q", thought)
	}
	if action != "get_weather for Seoul" {
		t.Errorf("action = %q", action)
	}
	if final != "" {
		t.Errorf("final = %q, want empty", final)
	}
}

func TestParseRemainingTasks(t *testing.T) {
	tasks := parseRemainingTasks(`Here you go: ["check Busan weather", "check Daegu weather"]`)
	if len(tasks) != 2 {
		t.Fatalf("tasks = %+v, want 2 entries", tasks)
	}
}

func TestParseRemainingTasks_EmptyArray(t *testing.T) {
	tasks := parseRemainingTasks("[]")
	if len(tasks) != 0 {
		t.Errorf("tasks = %+v, want none", tasks)
	}
}

func TestParseRemainingTasks_NoArrayFound(t *testing.T) {
	if tasks := parseRemainingTasks("nothing here"); tasks != nil {
		t.Errorf("tasks = %+v, want nil", tasks)
	}
}
