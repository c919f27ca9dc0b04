package coherence

import (
	"strings"

	"github.com/ghmbegerez/converge/internal/types"
)

// CrossValidateInput gathers the risk-engine outputs the downgrade rule
// needs alongside the harness result (spec §4.7).
type CrossValidateInput struct {
	RiskScore        float64
	PropagationScore float64
	Bombs            []types.Bomb
	ScopeHints       []string
}

// CrossValidate mutates result in place, downgrading its Verdict
// (PASS→WARN, WARN→FAIL) and setting Downgraded/DowngradeReason when one of
// the three inconsistency rules fires. Called by the orchestrator after the
// harness runs, since the rules need risk-engine output the harness itself
// doesn't produce.
func CrossValidate(result *types.CoherenceResult, in CrossValidateInput) {
	allPassed := true
	for _, qr := range result.QuestionResults {
		if !qr.Passed {
			allPassed = false
			break
		}
	}

	var reason string
	switch {
	case result.Verdict == types.CoherencePass && in.RiskScore > 50:
		reason = "harness passed but risk_score > 50"
	case allPassed && len(in.Bombs) > 0:
		reason = "all questions passed but bombs were detected"
	case in.PropagationScore > 40 && !hasScopeNamedQuestion(result, in.ScopeHints):
		reason = "propagation_score > 40 and no scope-named question exists"
	default:
		return
	}

	result.Verdict = downgrade(result.Verdict)
	result.Downgraded = true
	result.DowngradeReason = reason
}

func downgrade(v types.CoherenceVerdict) types.CoherenceVerdict {
	switch v {
	case types.CoherencePass:
		return types.CoherenceWarn
	case types.CoherenceWarn:
		return types.CoherenceFail
	default:
		return v
	}
}

func hasScopeNamedQuestion(result *types.CoherenceResult, scopeHints []string) bool {
	for _, scope := range scopeHints {
		for _, qr := range result.QuestionResults {
			if strings.Contains(strings.ToLower(qr.QuestionID), strings.ToLower(scope)) {
				return true
			}
		}
	}
	return false
}
