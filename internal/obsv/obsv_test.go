package obsv

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestObserveGateIncrementsLabeledCounter(t *testing.T) {
	before := testutil.ToFloat64(gateEvaluations.WithLabelValues(string(types.GateVerification), "pass"))
	ObserveGate(types.GateVerification, true)
	after := testutil.ToFloat64(gateEvaluations.WithLabelValues(string(types.GateVerification), "pass"))
	require.Equal(t, before+1, after)
}

func TestObserveRiskGateLabelsByModeAndOutcome(t *testing.T) {
	eval := types.RiskGateEvaluation{Mode: types.RiskGateShadow, WouldBlock: true, Enforced: false}
	before := testutil.ToFloat64(riskGateEvaluations.WithLabelValues(string(eval.Mode), "true", "false"))
	ObserveRiskGate(eval)
	after := testutil.ToFloat64(riskGateEvaluations.WithLabelValues(string(eval.Mode), "true", "false"))
	require.Equal(t, before+1, after)
}

func TestObserveQueueCycleRecordsOutcomeCounts(t *testing.T) {
	before := testutil.ToFloat64(queueOutcomes.WithLabelValues("merged"))
	ObserveQueueCycle(250*time.Millisecond, 3, 1, 2, 0, 1)
	after := testutil.ToFloat64(queueOutcomes.WithLabelValues("merged"))
	require.Equal(t, before+3, after)

	requeuedBefore := testutil.ToFloat64(queueOutcomes.WithLabelValues("requeued"))
	require.GreaterOrEqual(t, requeuedBefore, 0.0)
}

func TestObserveBombIncrementsByKind(t *testing.T) {
	before := testutil.ToFloat64(bombDetections.WithLabelValues("cascade"))
	ObserveBomb(types.BombKind("cascade"))
	after := testutil.ToFloat64(bombDetections.WithLabelValues("cascade"))
	require.Equal(t, before+1, after)
}

func TestObserveCoherenceDowngradeIncrementsByReason(t *testing.T) {
	before := testutil.ToFloat64(coherenceDowngrades.WithLabelValues("high_risk"))
	ObserveCoherenceDowngrade("high_risk")
	after := testutil.ToFloat64(coherenceDowngrades.WithLabelValues("high_risk"))
	require.Equal(t, before+1, after)
}

func TestBoolLabel(t *testing.T) {
	require.Equal(t, "true", boolLabel(true))
	require.Equal(t, "false", boolLabel(false))
}
