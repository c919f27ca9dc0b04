package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestDetectThermalDeathFiresAtThreeOfFiveConditions(t *testing.T) {
	in := Input{
		FilesChanged: make([]string, 12),               // files > 10
		Conflicts:    []string{"a.go"},                 // conflicts > 0
		Dependencies: []string{"d1", "d2", "d3", "d4"}, // deps > 3
	}
	metrics := types.GraphMetrics{Components: 1, Edges: 1, Nodes: 10}
	b := detectThermalDeath(in, metrics)
	require.NotNil(t, b)
	require.Equal(t, types.BombThermalDeath, b.Kind)
	require.Equal(t, types.SeverityCritical, b.Severity)
	require.Equal(t, 3, b.Detail["conditions_met"])
}

func TestDetectThermalDeathSilentBelowThreshold(t *testing.T) {
	in := Input{
		FilesChanged: make([]string, 12), // files > 10: 1 condition
		Conflicts:    []string{"a.go"},   // conflicts > 0: 2 conditions
	}
	metrics := types.GraphMetrics{Components: 1, Edges: 1, Nodes: 10}
	require.Nil(t, detectThermalDeath(in, metrics))
}

func TestDetectSpiralRequiresAtLeastTwoLongCycles(t *testing.T) {
	metrics := types.GraphMetrics{Cycles: [][]string{{"a", "b"}, {"c", "d"}}}
	b := detectSpiral(metrics)
	require.NotNil(t, b)
	require.Equal(t, types.BombSpiral, b.Kind)
	require.Equal(t, 2, b.Detail["cycle_count"])
}

func TestDetectSpiralSilentWithOnlyOneLongCycle(t *testing.T) {
	metrics := types.GraphMetrics{Cycles: [][]string{{"a", "b"}}}
	require.Nil(t, detectSpiral(metrics))
}

// Mirrors the thermal-death seed scenario: a change touching enough files,
// conflicts, dependencies and dependency-graph components that Evaluate
// surfaces the bomb end to end, not just through the unit-level helper.
func TestEvaluateSurfacesThermalDeathBombOnDegradedChange(t *testing.T) {
	files := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		files = append(files, fakeDistinctFile(i))
	}
	g := buildGraph(files)
	re := Evaluate(Input{
		Graph:        g,
		FilesChanged: files,
		Conflicts:    []string{files[0]},
		Dependencies: []string{"dep-1", "dep-2", "dep-3", "dep-4"},
		TargetBranch: "main",
		CurrentRisk:  types.RiskMedium,
	})

	var thermal *types.Bomb
	for i := range re.Bombs {
		if re.Bombs[i].Kind == types.BombThermalDeath {
			thermal = &re.Bombs[i]
		}
	}
	require.NotNil(t, thermal, "expected a thermal_death bomb for a 12-file, 1-conflict, 4-dependency change")
	require.Equal(t, types.SeverityCritical, thermal.Severity)
}

func fakeDistinctFile(i int) string {
	dirs := []string{"src", "lib", "core", "pkg"}
	return dirs[i%len(dirs)] + "/file" + string(rune('a'+i)) + ".go"
}
