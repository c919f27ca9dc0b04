// Package obsv registers the prometheus metrics SPEC_FULL's domain stack
// calls for: gate pass/block rates, queue cycle duration, and bomb
// detections. Grounded on
// jinterlante1206-AleutianLocal/services/trace/agent/routing/metrics.go's
// promauto.NewCounterVec/NewHistogramVec-with-package-level-var idiom —
// the only example repo in the pack that imports
// github.com/prometheus/client_golang directly (the teacher itself
// carries the dependency in go.mod but never wires it). These metrics
// coexist with, rather than replace, the OTel metrics internal/telemetry
// exposes: prometheus is the scrape surface an operator points Grafana
// at, OTel is the trace-correlated path.
package obsv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ghmbegerez/converge/internal/types"
)

var (
	gateEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "converge",
		Subsystem: "policy",
		Name:      "gate_evaluations_total",
		Help:      "Total policy gate evaluations by gate and verdict",
	}, []string{"gate", "verdict"})

	riskGateEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "converge",
		Subsystem: "policy",
		Name:      "risk_gate_evaluations_total",
		Help:      "Total risk gate evaluations by mode and enforcement outcome",
	}, []string{"mode", "would_block", "enforced"})

	queueCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "converge",
		Subsystem: "queue",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one queue-processor RunOnce pass",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	queueOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "converge",
		Subsystem: "queue",
		Name:      "intent_outcomes_total",
		Help:      "Total Intent outcomes per queue pass by outcome",
	}, []string{"outcome"})

	bombDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "converge",
		Subsystem: "risk",
		Name:      "bomb_detections_total",
		Help:      "Total structural degradation patterns detected on the dependency graph",
	}, []string{"kind"})

	coherenceDowngrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "converge",
		Subsystem: "coherence",
		Name:      "downgrades_total",
		Help:      "Total coherence cross-validation downgrades by reason",
	}, []string{"reason"})
)

// ObserveGate records one policy gate evaluation.
func ObserveGate(gate types.GateName, passed bool) {
	verdict := "block"
	if passed {
		verdict = "pass"
	}
	gateEvaluations.WithLabelValues(string(gate), verdict).Inc()
}

// ObserveRiskGate records one risk gate evaluation.
func ObserveRiskGate(eval types.RiskGateEvaluation) {
	riskGateEvaluations.WithLabelValues(
		string(eval.Mode),
		boolLabel(eval.WouldBlock),
		boolLabel(eval.Enforced),
	).Inc()
}

// ObserveQueueCycle records one RunOnce pass's wall-clock duration and its
// per-Intent outcome counts.
func ObserveQueueCycle(d time.Duration, merged, requeued, rejected, dependencyBlocked, skipped int) {
	queueCycleDuration.Observe(d.Seconds())
	queueOutcomes.WithLabelValues("merged").Add(float64(merged))
	queueOutcomes.WithLabelValues("requeued").Add(float64(requeued))
	queueOutcomes.WithLabelValues("rejected").Add(float64(rejected))
	queueOutcomes.WithLabelValues("dependency_blocked").Add(float64(dependencyBlocked))
	queueOutcomes.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveBomb records one detected structural degradation pattern.
func ObserveBomb(kind types.BombKind) {
	bombDetections.WithLabelValues(string(kind)).Inc()
}

// ObserveCoherenceDowngrade records one coherence cross-validation
// downgrade.
func ObserveCoherenceDowngrade(reason string) {
	coherenceDowngrades.WithLabelValues(reason).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
