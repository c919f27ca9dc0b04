package risk

import (
	"github.com/ghmbegerez/converge/internal/graph"
	"github.com/ghmbegerez/converge/internal/types"
)

// detectBombs implements the three structural-degradation findings of
// spec §4.6.
func detectBombs(g *graph.Graph, in Input, metrics types.GraphMetrics, rank map[graph.Node]float64) []types.Bomb {
	var bombs []types.Bomb

	if b := detectCascade(g, in, rank); b != nil {
		bombs = append(bombs, *b)
	}
	if b := detectSpiral(metrics); b != nil {
		bombs = append(bombs, *b)
	}
	if b := detectThermalDeath(in, metrics); b != nil {
		bombs = append(bombs, *b)
	}
	return bombs
}

// detectCascade: any changed file with PageRank > 1.5/n AND out_degree >= 3
// AND |reachable descendants| > 1.5 * |files_changed|.
func detectCascade(g *graph.Graph, in Input, rank map[graph.Node]float64) *types.Bomb {
	n := g.NodeCount()
	if n == 0 {
		return nil
	}
	threshold := 1.5 / float64(n)
	for _, f := range in.FilesChanged {
		node := graph.Node{Kind: types.NodeFile, Key: f}
		outDegree := len(g.Out(node))
		if rank[node] <= threshold || outDegree < 3 {
			continue
		}
		reachable := reachableCount(g, node)
		if float64(reachable) > 1.5*float64(len(in.FilesChanged)) {
			return &types.Bomb{
				Kind:     types.BombCascade,
				Severity: types.SeverityHigh,
				Detail: map[string]any{
					"file":       f,
					"pagerank":   rank[node],
					"out_degree": outDegree,
					"reachable":  reachable,
				},
			}
		}
	}
	return nil
}

func reachableCount(g *graph.Graph, start graph.Node) int {
	visited := map[graph.Node]bool{start: true}
	stack := []graph.Node{start}
	count := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Out(cur) {
			if !visited[e.To] {
				visited[e.To] = true
				count++
				stack = append(stack, e.To)
			}
		}
	}
	return count
}

// detectSpiral: DAG property fails and at least 2 simple cycles of length
// >= 2 exist.
func detectSpiral(metrics types.GraphMetrics) *types.Bomb {
	var longCycles int
	for _, c := range metrics.Cycles {
		if len(c) >= 2 {
			longCycles++
		}
	}
	if longCycles < 2 {
		return nil
	}
	return &types.Bomb{
		Kind:     types.BombSpiral,
		Severity: types.SeverityMedium,
		Detail: map[string]any{
			"cycle_count": longCycles,
		},
	}
}

// detectThermalDeath: at least 3 of {files>10, conflicts>0, deps>3,
// components>3, edges>2*nodes} hold.
func detectThermalDeath(in Input, metrics types.GraphMetrics) *types.Bomb {
	conditions := 0
	if len(in.FilesChanged) > 10 {
		conditions++
	}
	if len(in.Conflicts) > 0 {
		conditions++
	}
	if len(in.Dependencies) > 3 {
		conditions++
	}
	if metrics.Components > 3 {
		conditions++
	}
	if metrics.Edges > 2*metrics.Nodes {
		conditions++
	}
	if conditions < 3 {
		return nil
	}
	return &types.Bomb{
		Kind:     types.BombThermalDeath,
		Severity: types.SeverityCritical,
		Detail: map[string]any{
			"conditions_met": conditions,
		},
	}
}
