package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{StatusDraft, StatusReady, StatusValidated, StatusQueued, StatusMerged, StatusRejected}

// Once an Intent reaches a terminal status, no further transition is legal,
// and DRAFT can never reach MERGED without first passing through READY and
// VALIDATED — the lifecycle only ever moves forward.
func TestCanTransitionTerminalStatusesAdmitNothing(t *testing.T) {
	for _, terminal := range []Status{StatusMerged, StatusRejected} {
		for _, to := range allStatuses {
			require.Falsef(t, CanTransition(terminal, to), "%s -> %s should not be allowed from a terminal status", terminal, to)
		}
	}
}

func TestCanTransitionRejectedIsReachableFromAnyNonTerminalStatus(t *testing.T) {
	for _, from := range []Status{StatusDraft, StatusReady, StatusValidated, StatusQueued} {
		require.True(t, CanTransition(from, StatusRejected), "%s -> REJECTED should always be allowed", from)
	}
}

func TestCanTransitionDraftCannotSkipAheadToQueuedOrMerged(t *testing.T) {
	require.False(t, CanTransition(StatusDraft, StatusQueued))
	require.False(t, CanTransition(StatusDraft, StatusMerged))
	require.False(t, CanTransition(StatusDraft, StatusValidated))
}

func TestCanTransitionNoStatusTransitionsToItself(t *testing.T) {
	for _, s := range allStatuses {
		require.False(t, CanTransition(s, s), "%s -> %s (self-loop) should not be allowed", s, s)
	}
}

func TestCanTransitionForwardPathIsFullyConnected(t *testing.T) {
	require.True(t, CanTransition(StatusDraft, StatusReady))
	require.True(t, CanTransition(StatusReady, StatusValidated))
	require.True(t, CanTransition(StatusValidated, StatusQueued))
	require.True(t, CanTransition(StatusValidated, StatusMerged))
	require.True(t, CanTransition(StatusQueued, StatusMerged))
}

// An Intent's retries must never be allowed past DefaultMaxRetries: once at
// the bound, Validate still accepts the stored value (it is a record of
// history), but nothing should ever push it higher.
func TestValidateAcceptsRetriesUpToMaxButNotBeyond(t *testing.T) {
	atBound := validIntent()
	atBound.Retries = DefaultMaxRetries
	require.NoError(t, atBound.Validate())

	overBound := validIntent()
	overBound.Retries = DefaultMaxRetries + 1
	require.Error(t, overBound.Validate())
}

func TestClassifyRiskScoreBoundaries(t *testing.T) {
	require.Equal(t, RiskLow, ClassifyRiskScore(0))
	require.Equal(t, RiskLow, ClassifyRiskScore(24.999))
	require.Equal(t, RiskMedium, ClassifyRiskScore(25))
	require.Equal(t, RiskMedium, ClassifyRiskScore(49.999))
	require.Equal(t, RiskHigh, ClassifyRiskScore(50))
	require.Equal(t, RiskHigh, ClassifyRiskScore(74.999))
	require.Equal(t, RiskCritical, ClassifyRiskScore(75))
	require.Equal(t, RiskCritical, ClassifyRiskScore(100))
}
