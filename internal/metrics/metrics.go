// Package metrics exposes the Host Metrics Snapshot (uptime, active
// sessions, tool-call counters, ReAct iteration counts) as Prometheus
// gauges and counters, wired as a thin observer over the workflow,
// registry, and session layers rather than a re-implementation of an
// observability pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the process-lifetime counters and gauges backing the
// Host Metrics Snapshot. Call RegisterOn to expose them on a
// prometheus.Registerer (cmd/mcphost uses a dedicated registry rather
// than the process default).
type Collector struct {
	startedAt time.Time

	sessionsActive       prometheus.GaugeFunc
	toolCallsTotal       prometheus.Counter
	toolCallsFailed      prometheus.Counter
	reactIterationsTotal prometheus.Counter
	reactIterations      prometheus.Histogram
}

// SessionCounter reports the number of currently active sessions. The
// session store implements this directly (it already tracks its map
// under a lock).
type SessionCounter interface {
	ActiveCount() int
}

// NewCollector constructs a Collector whose sessions_active gauge reads
// live from sessions.
func NewCollector(sessions SessionCounter) *Collector {
	c := &Collector{startedAt: time.Now()}

	c.sessionsActive = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "mcphost",
		Name:      "sessions_active",
		Help:      "Number of sessions currently held by the session store.",
	}, func() float64 {
		return float64(sessions.ActiveCount())
	})

	c.toolCallsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mcphost",
		Name:      "tool_calls_total",
		Help:      "Total number of tool calls dispatched through the registry.",
	})
	c.toolCallsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mcphost",
		Name:      "tool_calls_failed_total",
		Help:      "Total number of tool calls that completed with an error.",
	})
	c.reactIterationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mcphost",
		Name:      "react_iterations_total",
		Help:      "Total number of ReAct think/act/observe iterations across all turns.",
	})
	c.reactIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mcphost",
		Name:      "react_iterations_per_turn",
		Help:      "Distribution of ReAct iteration counts per completed turn.",
		Buckets:   []float64{1, 2, 3, 5, 8, 10},
	})

	return c
}

// RegisterOn registers every metric on reg. Call once at startup.
func (c *Collector) RegisterOn(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.sessionsActive, c.toolCallsTotal, c.toolCallsFailed,
		c.reactIterationsTotal, c.reactIterations,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RecordToolCall records the completion of one tool call.
func (c *Collector) RecordToolCall(failed bool) {
	c.toolCallsTotal.Inc()
	if failed {
		c.toolCallsFailed.Inc()
	}
}

// RecordReActTurn records the total number of iterations a completed
// ReAct turn took.
func (c *Collector) RecordReActTurn(iterations int) {
	c.reactIterationsTotal.Add(float64(iterations))
	c.reactIterations.Observe(float64(iterations))
}

// Uptime reports how long the collector (and by extension the host) has
// been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startedAt)
}
