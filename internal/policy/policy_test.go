package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestProfileForFallsBackToDefault(t *testing.T) {
	profile := ProfileFor(types.PolicyConfig{}, types.RiskLow, types.OriginHuman)
	require.Equal(t, DefaultProfiles[types.RiskLow], profile)
}

func TestProfileForAppliesOriginOverride(t *testing.T) {
	cfg := types.PolicyConfig{
		OriginOverrides: map[types.OriginType]map[string]types.PolicyProfileDiff{
			types.OriginAgent: {
				string(types.RiskLow): {EntropyBudget: ptr(5.0)},
			},
		},
	}
	profile := ProfileFor(cfg, types.RiskLow, types.OriginAgent)
	require.Equal(t, 5.0, profile.EntropyBudget)
	require.Equal(t, DefaultProfiles[types.RiskLow].ContainmentMin, profile.ContainmentMin)
}

func TestProfileForAppliesDefaultOriginOverride(t *testing.T) {
	cfg := types.PolicyConfig{
		OriginOverrides: map[types.OriginType]map[string]types.PolicyProfileDiff{
			types.OriginIntegration: {
				"_default": {BlastLimit: ptr(1.0)},
			},
		},
	}
	profile := ProfileFor(cfg, types.RiskMedium, types.OriginIntegration)
	require.Equal(t, 1.0, profile.BlastLimit)
}

func TestEvaluateAllowsWhenEveryGatePasses(t *testing.T) {
	profile := DefaultProfiles[types.RiskLow]
	ev := Evidence{
		ChecksPassed:     profile.Checks,
		ContainmentScore: profile.ContainmentMin,
		EntropyScore:     0,
		CoherenceScore:   100,
	}
	pe := Evaluate(profile, nil, types.RiskLow, ev)
	require.Equal(t, types.VerdictAllow, pe.Verdict)
	require.Nil(t, pe.FirstFailingGate())
}

func TestEvaluateBlocksOnMissingCheck(t *testing.T) {
	profile := DefaultProfiles[types.RiskLow]
	ev := Evidence{
		ContainmentScore: profile.ContainmentMin,
		CoherenceScore:   100,
	}
	pe := Evaluate(profile, nil, types.RiskLow, ev)
	require.Equal(t, types.VerdictBlock, pe.Verdict)
	g := pe.FirstFailingGate()
	require.NotNil(t, g)
	require.Equal(t, types.GateVerification, g.Gate)
}

func TestEvaluateBlocksOnInsufficientContainment(t *testing.T) {
	profile := DefaultProfiles[types.RiskLow]
	ev := Evidence{
		ChecksPassed:     profile.Checks,
		ContainmentScore: 0,
		CoherenceScore:   100,
	}
	pe := Evaluate(profile, nil, types.RiskLow, ev)
	require.Equal(t, types.VerdictBlock, pe.Verdict)
	require.Equal(t, types.GateContainment, pe.FirstFailingGate().Gate)
}

func TestEvaluateBlocksOnExcessSecurityFindings(t *testing.T) {
	profile := DefaultProfiles[types.RiskHigh]
	ev := Evidence{
		ChecksPassed:     profile.Checks,
		ContainmentScore: profile.ContainmentMin,
		CoherenceScore:   100,
		HighFindings:     1,
	}
	pe := Evaluate(profile, nil, types.RiskHigh, ev)
	require.Equal(t, types.VerdictBlock, pe.Verdict)
}

func TestRolloutBucketIsDeterministic(t *testing.T) {
	b1 := RolloutBucket("intent-123")
	b2 := RolloutBucket("intent-123")
	require.Equal(t, b1, b2)
	require.GreaterOrEqual(t, b1, 0.0)
	require.Less(t, b1, 1.0)
	require.NotEqual(t, b1, RolloutBucket("intent-456"))
}

func TestEvaluateRiskGateShadowNeverEnforces(t *testing.T) {
	cfg := types.RiskGateConfig{
		Thresholds:   types.RiskThresholds{MaxRiskScore: 10},
		Mode:         types.RiskGateShadow,
		EnforceRatio: 1.0,
	}
	rg := EvaluateRiskGate(cfg, "intent-1", 99, 0, 0)
	require.True(t, rg.WouldBlock)
	require.False(t, rg.Enforced)
}

func TestEvaluateRiskGateEnforcesInRolloutGroup(t *testing.T) {
	cfg := types.RiskGateConfig{
		Thresholds:   types.RiskThresholds{MaxRiskScore: 10},
		Mode:         types.RiskGateEnforce,
		EnforceRatio: 1.0, // every bucket is in the enforcement group
	}
	rg := EvaluateRiskGate(cfg, "intent-1", 99, 0, 0)
	require.True(t, rg.WouldBlock)
	require.True(t, rg.Enforced)
}

func TestEvaluateRiskGateNoBreachNeverEnforces(t *testing.T) {
	cfg := types.RiskGateConfig{
		Thresholds:   types.RiskThresholds{MaxRiskScore: 100},
		Mode:         types.RiskGateEnforce,
		EnforceRatio: 1.0,
	}
	rg := EvaluateRiskGate(cfg, "intent-1", 10, 10, 10)
	require.False(t, rg.WouldBlock)
	require.False(t, rg.Enforced)
}

func TestCalibrateProfilesUsesPercentiles(t *testing.T) {
	scores := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		scores = append(scores, float64(i))
	}
	out := CalibrateProfiles(scores, nil)
	require.Greater(t, out[types.RiskLow].EntropyBudget, 0.0)
	require.Greater(t, out[types.RiskCritical].EntropyBudget, 0.0)
}

func TestCalibrateProfilesNoHistoryKeepsDefaults(t *testing.T) {
	out := CalibrateProfiles(nil, nil)
	require.Equal(t, DefaultProfiles[types.RiskLow].EntropyBudget, out[types.RiskLow].EntropyBudget)
}

// Evaluate is a pure function of its arguments: the same profile and
// evidence must always yield the same verdict and failing gate, with no
// hidden dependence on call order or shared state.
func TestEvaluateIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	profile := DefaultProfiles[types.RiskHigh]
	ev := Evidence{
		ChecksPassed:     profile.Checks[:len(profile.Checks)-1],
		ContainmentScore: profile.ContainmentMin - 0.1,
		EntropyScore:     profile.EntropyBudget + 5,
		CoherenceScore:   profile.CoherencePass - 1,
		HighFindings:     profile.Security.MaxHigh + 1,
	}

	first := Evaluate(profile, nil, types.RiskHigh, ev)
	for i := 0; i < 20; i++ {
		again := Evaluate(profile, nil, types.RiskHigh, ev)
		require.Equal(t, first.Verdict, again.Verdict)
		require.Equal(t, first.FirstFailingGate(), again.FirstFailingGate())
		require.Equal(t, first.Gates, again.Gates)
	}
}

// EvaluateRiskGate must likewise be deterministic: the enforcement decision
// for a given intent ID and signal set never flips between calls.
func TestEvaluateRiskGateIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	cfg := types.RiskGateConfig{
		Thresholds:   types.RiskThresholds{MaxRiskScore: 50, MaxDamageScore: 50, MaxPropagationScore: 50},
		Mode:         types.RiskGateEnforce,
		EnforceRatio: 0.5,
	}
	first := EvaluateRiskGate(cfg, "intent-deterministic", 80, 10, 10)
	for i := 0; i < 20; i++ {
		again := EvaluateRiskGate(cfg, "intent-deterministic", 80, 10, 10)
		require.Equal(t, first, again)
	}
}

func ptr(f float64) *float64 { return &f }
