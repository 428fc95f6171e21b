// Package metrics exposes Prometheus counters for reconciliation passes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all reconciler metrics.
type Registry struct {
	RulesReconciled *prometheus.CounterVec
	ZoneCommits     *prometheus.CounterVec
	FastPath        *prometheus.CounterVec
	Passes          *prometheus.CounterVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.RulesReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floe_rules_reconciled_total",
		Help: "Rules that caused a mutation, by category and layer",
	}, []string{"category", "layer"})

	r.ZoneCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floe_zone_commits_total",
		Help: "Permanent settings commits, by status",
	}, []string{"status"})

	r.FastPath = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floe_fastpath_total",
		Help: "Connection-manager fast path outcomes",
	}, []string{"result"})

	r.Passes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floe_passes_total",
		Help: "Reconciliation passes, by outcome",
	}, []string{"outcome"})

	return r
}

// RecordCommit records one permanent-layer commit attempt.
func (r *Registry) RecordCommit(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.ZoneCommits.WithLabelValues(status).Inc()
}

// RecordFastPath records a fast-path attempt outcome.
func (r *Registry) RecordFastPath(applied bool) {
	result := "skipped"
	if applied {
		result = "applied"
	}
	r.FastPath.WithLabelValues(result).Inc()
}
