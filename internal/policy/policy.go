// Package policy implements the five-gate policy engine and the separate
// canary-rolled risk gate (spec §4.8). Gate ordering and result shape are
// grounded on steveyegge-beads/internal/gate's Gate/GateResult pattern
// (an ordered registry of named checks producing a uniform result struct);
// the gate formulas themselves are grounded on the original implementation's
// policy.py, generalized from 3 gates to 5 per spec §4.8.
package policy

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ghmbegerez/converge/internal/types"
)

// DefaultProfiles are the spec §4.8 default profile table values, used
// when no policy.json overrides them.
var DefaultProfiles = map[types.RiskLevel]types.PolicyProfile{
	types.RiskLow: {
		EntropyBudget: 25.0, ContainmentMin: 0.30, BlastLimit: 50.0,
		Checks: []string{"lint"}, CoherencePass: 75, CoherenceWarn: 60,
		Security: types.SecurityThresholds{MaxCritical: 0, MaxHigh: 5},
	},
	types.RiskMedium: {
		EntropyBudget: 18.0, ContainmentMin: 0.50, BlastLimit: 35.0,
		Checks: []string{"lint"}, CoherencePass: 75, CoherenceWarn: 60,
		Security: types.SecurityThresholds{MaxCritical: 0, MaxHigh: 2},
	},
	types.RiskHigh: {
		EntropyBudget: 12.0, ContainmentMin: 0.70, BlastLimit: 20.0,
		Checks: []string{"lint", "unit_tests"}, CoherencePass: 80, CoherenceWarn: 65,
		Security: types.SecurityThresholds{MaxCritical: 0, MaxHigh: 0},
	},
	types.RiskCritical: {
		EntropyBudget: 6.0, ContainmentMin: 0.85, BlastLimit: 10.0,
		Checks: []string{"lint", "unit_tests"}, CoherencePass: 85, CoherenceWarn: 70,
		Security: types.SecurityThresholds{MaxCritical: 0, MaxHigh: 0},
	},
}

// DefaultRiskThresholds are the spec §9-resolved global risk-gate limits,
// matching the original's DEFAULT_RISK_THRESHOLDS.
var DefaultRiskThresholds = types.RiskThresholds{
	MaxRiskScore:        65.0,
	MaxDamageScore:       60.0,
	MaxPropagationScore: 55.0,
}

// ProfileFor resolves the effective profile for a risk level and origin
// type: base profile merged with origin_overrides[origin][level], falling
// back to origin_overrides[origin]["_default"] (spec §4.8).
func ProfileFor(cfg types.PolicyConfig, level types.RiskLevel, origin types.OriginType) types.PolicyProfile {
	base, ok := cfg.Profiles[level]
	if !ok {
		base = DefaultProfiles[level]
	}

	overrides, ok := cfg.OriginOverrides[origin]
	if !ok {
		return base
	}
	if diff, ok := overrides[string(level)]; ok {
		return mergeProfile(base, diff)
	}
	if diff, ok := overrides["_default"]; ok {
		return mergeProfile(base, diff)
	}
	return base
}

func mergeProfile(base types.PolicyProfile, diff types.PolicyProfileDiff) types.PolicyProfile {
	out := base
	if diff.EntropyBudget != nil {
		out.EntropyBudget = *diff.EntropyBudget
	}
	if diff.ContainmentMin != nil {
		out.ContainmentMin = *diff.ContainmentMin
	}
	if diff.BlastLimit != nil {
		out.BlastLimit = *diff.BlastLimit
	}
	if diff.Checks != nil {
		out.Checks = diff.Checks
	}
	if diff.CoherencePass != nil {
		out.CoherencePass = *diff.CoherencePass
	}
	if diff.CoherenceWarn != nil {
		out.CoherenceWarn = *diff.CoherenceWarn
	}
	if diff.Security != nil {
		out.Security = *diff.Security
	}
	return out
}

// Evidence gathers everything Evaluate needs from the earlier pipeline
// stages (spec §4.9 steps 2-4) to score the five gates.
type Evidence struct {
	ChecksPassed     []string
	ContainmentScore float64
	EntropyScore     float64
	CriticalFindings int
	HighFindings     int
	CoherenceScore   float64
}

// Evaluate scores all five gates (spec §4.8) against profile and evidence.
// Every gate is always computed, even after an earlier one fails, so the
// caller gets full diagnostics in one pass.
func Evaluate(profile types.PolicyProfile, intentChecks []string, riskLevel types.RiskLevel, ev Evidence) types.PolicyEvaluation {
	required := types.EffectiveChecks(profile.Checks, intentChecks)
	gates := []types.GateResult{
		verificationGate(required, ev.ChecksPassed),
		containmentGate(profile, ev.ContainmentScore),
		entropyGate(profile, ev.EntropyScore),
		securityGate(profile, ev.CriticalFindings, ev.HighFindings),
		coherenceGate(profile, ev.CoherenceScore),
	}

	verdict := types.VerdictAllow
	for _, g := range gates {
		if !g.Passed {
			verdict = types.VerdictBlock
			break
		}
	}

	return types.PolicyEvaluation{
		Verdict:     verdict,
		Gates:       gates,
		RiskLevel:   riskLevel,
		ProfileUsed: string(riskLevel),
	}
}

func verificationGate(required, passed []string) types.GateResult {
	passedSet := make(map[string]bool, len(passed))
	for _, c := range passed {
		passedSet[c] = true
	}
	var missing []string
	for _, c := range required {
		if !passedSet[c] {
			missing = append(missing, c)
		}
	}
	reason := "all required checks passed"
	if len(missing) > 0 {
		reason = fmt.Sprintf("missing checks: %v", missing)
	}
	return types.GateResult{
		Gate:      types.GateVerification,
		Passed:    len(missing) == 0,
		Reason:    reason,
		Value:     float64(len(passed)),
		Threshold: float64(len(required)),
	}
}

func containmentGate(profile types.PolicyProfile, containment float64) types.GateResult {
	return types.GateResult{
		Gate:      types.GateContainment,
		Passed:    containment >= profile.ContainmentMin,
		Reason:    fmt.Sprintf("containment %.2f vs min %.2f", containment, profile.ContainmentMin),
		Value:     containment,
		Threshold: profile.ContainmentMin,
	}
}

func entropyGate(profile types.PolicyProfile, entropy float64) types.GateResult {
	return types.GateResult{
		Gate:      types.GateEntropy,
		Passed:    entropy <= profile.EntropyBudget,
		Reason:    fmt.Sprintf("entropy %.1f vs budget %.1f", entropy, profile.EntropyBudget),
		Value:     entropy,
		Threshold: profile.EntropyBudget,
	}
}

func securityGate(profile types.PolicyProfile, critical, high int) types.GateResult {
	passed := critical <= profile.Security.MaxCritical && high <= profile.Security.MaxHigh
	return types.GateResult{
		Gate:      types.GateSecurity,
		Passed:    passed,
		Reason:    fmt.Sprintf("%d critical, %d high findings", critical, high),
		Value:     float64(critical*10 + high),
		Threshold: float64(profile.Security.MaxCritical*10 + profile.Security.MaxHigh),
	}
}

func coherenceGate(profile types.PolicyProfile, score float64) types.GateResult {
	return types.GateResult{
		Gate:      types.GateCoherence,
		Passed:    score >= profile.CoherenceWarn,
		Reason:    fmt.Sprintf("coherence score %.1f vs warn floor %.1f", score, profile.CoherenceWarn),
		Value:     score,
		Threshold: profile.CoherenceWarn,
	}
}

// RolloutBucket computes the deterministic [0,1) bucket for an intent ID,
// used by the canary-rolled risk gate (spec §4.8):
// bucket = uint32(SHA256(intent_id)[0:4]) / 2^32.
func RolloutBucket(intentID string) float64 {
	sum := sha256.Sum256([]byte(intentID))
	v := binary.BigEndian.Uint32(sum[0:4])
	return float64(v) / (1 << 32)
}

// EvaluateRiskGate evaluates the separate risk gate (spec §4.8): a breach
// on any of risk_score/damage_score/propagation_score blocks only when
// mode=enforce and the intent's deterministic rollout bucket falls below
// enforce_ratio. In shadow mode the breach is recorded but never enforced.
func EvaluateRiskGate(cfg types.RiskGateConfig, intentID string, riskScore, damageScore, propagationScore float64) types.RiskGateEvaluation {
	var breaches []types.RiskGateBreach
	if riskScore > cfg.Thresholds.MaxRiskScore {
		breaches = append(breaches, types.RiskGateBreach{Metric: "risk_score", Value: riskScore, Limit: cfg.Thresholds.MaxRiskScore})
	}
	if damageScore > cfg.Thresholds.MaxDamageScore {
		breaches = append(breaches, types.RiskGateBreach{Metric: "damage_score", Value: damageScore, Limit: cfg.Thresholds.MaxDamageScore})
	}
	if propagationScore > cfg.Thresholds.MaxPropagationScore {
		breaches = append(breaches, types.RiskGateBreach{Metric: "propagation_score", Value: propagationScore, Limit: cfg.Thresholds.MaxPropagationScore})
	}

	wouldBlock := len(breaches) > 0
	bucket := RolloutBucket(intentID)
	inGroup := bucket < cfg.EnforceRatio
	enforced := cfg.Mode == types.RiskGateEnforce && wouldBlock && inGroup

	return types.RiskGateEvaluation{
		WouldBlock:         wouldBlock,
		Enforced:           enforced,
		Mode:                cfg.Mode,
		EnforceRatio:       cfg.EnforceRatio,
		RolloutBucket:      bucket,
		InEnforcementGroup: inGroup,
		Breaches:           breaches,
	}
}

// CalibrateProfiles recomputes entropy_budget per risk level from a sorted
// historical sequence of entropy_score values, via the P75/P90/P95
// percentile formulas of spec §4.8. Profiles not present in base keep
// their DefaultProfiles value.
func CalibrateProfiles(historicalEntropyScores []float64, base map[types.RiskLevel]types.PolicyProfile) map[types.RiskLevel]types.PolicyProfile {
	out := make(map[types.RiskLevel]types.PolicyProfile, len(DefaultProfiles))
	for level, p := range DefaultProfiles {
		out[level] = p
	}
	for level, p := range base {
		out[level] = p
	}
	if len(historicalEntropyScores) == 0 {
		return out
	}

	sorted := append([]float64(nil), historicalEntropyScores...)
	sort.Float64s(sorted)
	p75 := percentile(sorted, 0.75)
	p90 := percentile(sorted, 0.90)
	p95 := percentile(sorted, 0.95)

	low := out[types.RiskLow]
	low.EntropyBudget = maxFloat(1.5*p75, 10.0)
	out[types.RiskLow] = low

	medium := out[types.RiskMedium]
	medium.EntropyBudget = maxFloat(p75, 8.0)
	out[types.RiskMedium] = medium

	high := out[types.RiskHigh]
	high.EntropyBudget = maxFloat(p90, 5.0)
	out[types.RiskHigh] = high

	critical := out[types.RiskCritical]
	critical.EntropyBudget = maxFloat(0.8*p95, 3.0)
	out[types.RiskCritical] = critical

	return out
}

// percentile indexes into a pre-sorted slice the same way the original
// implementation does: int(n * q), not an interpolated percentile.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	idx := int(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
