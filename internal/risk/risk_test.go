package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/graph"
	"github.com/ghmbegerez/converge/internal/types"
)

func buildGraph(files []string) *graph.Graph {
	return graph.Build(graph.BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		FilesChanged: files,
	})
}

func TestEvaluateTrivialChangeIsLowRisk(t *testing.T) {
	g := buildGraph([]string{"docs/readme.md"})
	re := Evaluate(Input{
		Graph:        g,
		FilesChanged: []string{"docs/readme.md"},
		TargetBranch: "feature/scratch",
		CurrentRisk:  types.RiskLow,
	})
	require.Equal(t, types.RiskLow, re.RiskLevel)
	require.Empty(t, re.Bombs)
}

func TestEvaluateCoreFilesIntoMainRaisesScore(t *testing.T) {
	files := []string{"src/auth/login.go", "src/auth/session.go", "internal/db/migrate.go"}
	g := buildGraph(files)
	re := Evaluate(Input{
		Graph:        g,
		FilesChanged: files,
		Conflicts:    []string{"src/auth/login.go"},
		Dependencies: []string{"dep-1", "dep-2"},
		TargetBranch: "main",
		CurrentRisk:  types.RiskHigh,
	})
	require.Greater(t, re.RiskScore, 0.0)
	require.Greater(t, re.Signals.ContextualValue, 0.0)
}

func TestEvaluateContainmentDecreasesWithMoreCrossings(t *testing.T) {
	narrowFiles := []string{"src/a.go"}
	wideFiles := []string{"src/a.go", "src/b.go", "lib/c.go"}

	narrow := Evaluate(Input{Graph: buildGraph(narrowFiles), FilesChanged: narrowFiles, TargetBranch: "main"})
	wide := Evaluate(Input{Graph: buildGraph(wideFiles), FilesChanged: wideFiles, Dependencies: []string{"d1", "d2"}, TargetBranch: "main"})

	require.GreaterOrEqual(t, narrow.ContainmentScore, wide.ContainmentScore)
}

func TestEvaluatePopulatesGraphMetricsAndDiagnostics(t *testing.T) {
	files := []string{"src/a.go", "src/b.go"}
	re := Evaluate(Input{Graph: buildGraph(files), FilesChanged: files, TargetBranch: "main"})
	require.NotNil(t, re.Diagnostics)
	require.Contains(t, re.Diagnostics, "importance_ratio")
	require.Contains(t, re.Diagnostics, "core_ratio")
}

func TestEvaluateFlattensImpactEdgesFromChangedFiles(t *testing.T) {
	files := []string{"src/a.go", "src/b.go"}
	re := Evaluate(Input{Graph: buildGraph(files), FilesChanged: files, TargetBranch: "main"})
	require.NotEmpty(t, re.ImpactEdges)
	for _, e := range re.ImpactEdges {
		require.Contains(t, files, e.Source)
	}
}

// Every signal and composite score must stay within its declared range
// regardless of how large or skewed the input, since downstream policy
// gates compare them against fixed numeric thresholds.
func TestEvaluateSignalsAndCompositesStayWithinDeclaredBounds(t *testing.T) {
	cases := []Input{
		{FilesChanged: []string{"docs/readme.md"}, TargetBranch: "feature/x", CurrentRisk: types.RiskLow},
		{
			FilesChanged: []string{"src/a.go", "src/b.go", "lib/c.go", "internal/d.go", "pkg/e.go"},
			Conflicts:    []string{"src/a.go", "lib/c.go"},
			Dependencies: []string{"dep-1", "dep-2", "dep-3", "dep-4"},
			ScopeHints:   []string{"auth", "billing", "core"},
			TargetBranch: "main",
			CurrentRisk:  types.RiskCritical,
		},
		{
			FilesChanged:     make([]string, 0),
			TargetBranch:     "main",
			CurrentRisk:      types.RiskMedium,
			ImpactEdgeWeight: 500,
		},
	}
	for i, in := range cases {
		in.Graph = buildGraph(in.FilesChanged)
		re := Evaluate(in)

		for name, v := range map[string]float64{
			"entropic_load":    re.Signals.EntropicLoad,
			"contextual_value": re.Signals.ContextualValue,
			"complexity_delta": re.Signals.ComplexityDelta,
			"path_dependence":  re.Signals.PathDependence,
		} {
			require.GreaterOrEqualf(t, v, 0.0, "case %d signal %s below 0", i, name)
			require.LessOrEqualf(t, v, 100.0, "case %d signal %s above 100", i, name)
		}

		require.GreaterOrEqualf(t, re.RiskScore, 0.0, "case %d risk_score below 0", i)
		require.LessOrEqualf(t, re.RiskScore, 100.0, "case %d risk_score above 100", i)
		require.GreaterOrEqualf(t, re.DamageScore, 0.0, "case %d damage_score below 0", i)
		require.LessOrEqualf(t, re.DamageScore, 100.0, "case %d damage_score above 100", i)
		require.GreaterOrEqualf(t, re.EntropyScore, 0.0, "case %d entropy_score below 0", i)
		require.LessOrEqualf(t, re.EntropyScore, 100.0, "case %d entropy_score above 100", i)
		require.GreaterOrEqualf(t, re.PropagationScore, 0.0, "case %d propagation_score below 0", i)
		require.LessOrEqualf(t, re.PropagationScore, 100.0, "case %d propagation_score above 100", i)
		require.GreaterOrEqualf(t, re.ContainmentScore, 0.0, "case %d containment_score below 0", i)
		require.LessOrEqualf(t, re.ContainmentScore, 1.0, "case %d containment_score above 1", i)
		require.True(t, re.RiskLevel.IsValid(), "case %d produced invalid risk level %q", i, re.RiskLevel)
	}
}
