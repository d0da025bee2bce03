package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeSessionCounter struct{ count int }

func (f fakeSessionCounter) ActiveCount() int { return f.count }

func TestCollector_RegisterOn(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(fakeSessionCounter{count: 3})
	if err := c.RegisterOn(reg); err != nil {
		t.Fatalf("RegisterOn: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestCollector_RecordToolCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(fakeSessionCounter{})
	if err := c.RegisterOn(reg); err != nil {
		t.Fatalf("RegisterOn: %v", err)
	}

	c.RecordToolCall(false)
	c.RecordToolCall(true)

	families, _ := reg.Gather()
	var totalFound, failedFound bool
	for _, fam := range families {
		switch fam.GetName() {
		case "mcphost_tool_calls_total":
			totalFound = fam.GetMetric()[0].GetCounter().GetValue() == 2
		case "mcphost_tool_calls_failed_total":
			failedFound = fam.GetMetric()[0].GetCounter().GetValue() == 1
		}
	}
	if !totalFound {
		t.Error("tool_calls_total did not reach 2")
	}
	if !failedFound {
		t.Error("tool_calls_failed_total did not reach 1")
	}
}

func TestCollector_Uptime(t *testing.T) {
	c := NewCollector(fakeSessionCounter{})
	if c.Uptime() < 0 {
		t.Error("Uptime should be non-negative")
	}
}
