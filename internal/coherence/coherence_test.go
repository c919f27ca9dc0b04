package coherence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestParseAssertionSimpleComparison(t *testing.T) {
	clause, err := ParseAssertion("result >= 0.8")
	require.NoError(t, err)
	require.True(t, clause.Eval(0.9, 0, false))
	require.False(t, clause.Eval(0.5, 0, false))
}

func TestParseAssertionBaselineRelative(t *testing.T) {
	clause, err := ParseAssertion("result <= baseline")
	require.NoError(t, err)
	require.True(t, clause.Eval(5, 10, true))
	require.False(t, clause.Eval(15, 10, true))
	// No stored baseline: first-run permissive.
	require.True(t, clause.Eval(999, 0, false))
}

func TestParseAssertionCompoundAnd(t *testing.T) {
	clause, err := ParseAssertion("result >= 1 AND result <= 10")
	require.NoError(t, err)
	require.True(t, clause.Eval(5, 0, false))
	require.False(t, clause.Eval(11, 0, false))
}

func TestParseAssertionCompoundOr(t *testing.T) {
	clause, err := ParseAssertion("result == 1 OR result == 2")
	require.NoError(t, err)
	require.True(t, clause.Eval(2, 0, false))
	require.False(t, clause.Eval(3, 0, false))
}

func TestParseAssertionRejectsMalformedInput(t *testing.T) {
	_, err := ParseAssertion("")
	require.Error(t, err)

	_, err = ParseAssertion("result >=")
	require.Error(t, err)

	_, err = ParseAssertion("foo >= 1")
	require.Error(t, err)

	_, err = ParseAssertion("result ~= 1")
	require.Error(t, err)
}

func TestVerdictThresholds(t *testing.T) {
	require.Equal(t, types.CoherencePass, Verdict(90, 75, 60))
	require.Equal(t, types.CoherenceWarn, Verdict(65, 75, 60))
	require.Equal(t, types.CoherenceFail, Verdict(10, 75, 60))
}

func TestRunWithNoEnabledQuestionsScoresPerfect(t *testing.T) {
	cfg := types.HarnessConfig{Questions: []types.Question{
		{ID: "q1", Check: "echo 1", Assertion: "result == 1", Severity: types.SeverityLow, Enabled: false},
	}}
	result, err := Run(context.Background(), cfg, 75, 60, nil)
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)
	require.Equal(t, types.CoherencePass, result.Verdict)
	require.Empty(t, result.QuestionResults)
}

func TestRunScoresFailingCriticalQuestion(t *testing.T) {
	cfg := types.HarnessConfig{Questions: []types.Question{
		{ID: "q1", Check: "echo 0", Assertion: "result == 1", Severity: types.SeverityCritical, Enabled: true},
	}}
	result, err := Run(context.Background(), cfg, 75, 60, nil)
	require.NoError(t, err)
	require.Equal(t, 70.0, result.Score)
	require.Len(t, result.QuestionResults, 1)
	require.False(t, result.QuestionResults[0].Passed)
}

func TestCrossValidateDowngradesOnHighRiskDespitePass(t *testing.T) {
	result := &types.CoherenceResult{Verdict: types.CoherencePass}
	CrossValidate(result, CrossValidateInput{RiskScore: 80})
	require.True(t, result.Downgraded)
	require.Equal(t, types.CoherenceWarn, result.Verdict)
}

func TestCrossValidateDowngradesOnBombsDespiteAllPassed(t *testing.T) {
	result := &types.CoherenceResult{
		Verdict:         types.CoherenceWarn,
		QuestionResults: []types.QuestionResult{{QuestionID: "q1", Passed: true}},
	}
	CrossValidate(result, CrossValidateInput{Bombs: []types.Bomb{{Kind: "cascade"}}})
	require.True(t, result.Downgraded)
	require.Equal(t, types.CoherenceFail, result.Verdict)
}

func TestCrossValidateNoOpWhenNoRuleFires(t *testing.T) {
	result := &types.CoherenceResult{
		Verdict:         types.CoherencePass,
		QuestionResults: []types.QuestionResult{{QuestionID: "q1", Passed: true}},
	}
	CrossValidate(result, CrossValidateInput{RiskScore: 10, PropagationScore: 10})
	require.False(t, result.Downgraded)
	require.Equal(t, types.CoherencePass, result.Verdict)
}
