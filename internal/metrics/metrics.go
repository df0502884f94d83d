// Package metrics exposes caretaker counters in the Prometheus text format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "caretaker"

// Metrics holds the caretaker collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry     *prometheus.Registry
	cost         *prometheus.CounterVec
	calls        *prometheus.CounterVec
	fixAttempts  *prometheus.CounterVec
	budgetAlerts prometheus.Counter
	runs         *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_cost_usd_total",
			Help:      "Accumulated generation cost in USD.",
		}, []string{"agent", "model"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Number of metered generation calls.",
		}, []string{"agent", "model"}),
		fixAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fix_attempts_total",
			Help:      "Fix attempts by outcome.",
		}, []string{"agent", "outcome"}),
		budgetAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_alerts_total",
			Help:      "Monthly budget alerts raised.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Agent runs by final status.",
		}, []string{"agent", "status"}),
	}
	m.registry.MustRegister(m.cost, m.calls, m.fixAttempts, m.budgetAlerts, m.runs)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCost records one metered call.
func (m *Metrics) ObserveCost(agent, model string, cost float64) {
	if m == nil {
		return
	}
	m.cost.WithLabelValues(agent, model).Add(cost)
	m.calls.WithLabelValues(agent, model).Inc()
}

// ObserveBudgetAlert counts a raised budget alert.
func (m *Metrics) ObserveBudgetAlert(string) {
	if m == nil {
		return
	}
	m.budgetAlerts.Inc()
}

// ObserveAttempt counts a fix attempt with outcome passed, failed or error.
func (m *Metrics) ObserveAttempt(agent, outcome string) {
	if m == nil {
		return
	}
	m.fixAttempts.WithLabelValues(agent, outcome).Inc()
}

// ObserveRun counts a finished agent run.
func (m *Metrics) ObserveRun(agent, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(agent, status).Inc()
}

// WriteTextfile writes all metrics to path for the node exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
