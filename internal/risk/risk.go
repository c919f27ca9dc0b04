// Package risk implements the four-signal risk engine and composite
// scoring of spec §4.6, evaluated against the dependency graph internal/graph
// builds for one Intent. Grounded on the original Python implementation's
// risk formulas (original_source/src/converge/risk), reproduced verbatim
// as arithmetic since spec §4.6 gives exact coefficients — there is no
// idiomatic "library" way to express a fixed-coefficient scoring formula,
// so this stays on plain Go math, same as every numeric signal in the pack.
package risk

import (
	"strings"

	"github.com/ghmbegerez/converge/internal/graph"
	"github.com/ghmbegerez/converge/internal/types"
)

// CorePathPrefixes are the configured "core" path prefixes contributing to
// contextual_value's core_ratio (spec §4.6).
var CorePathPrefixes = []string{"src/", "lib/", "core/", "pkg/", "internal/", "app/"}

// CoreTargets are branch names that earn contextual_value's target_bonus.
var CoreTargets = map[string]bool{"main": true, "master": true, "release": true, "production": true, "prod": true}

var riskBonusTable = map[types.RiskLevel]float64{
	types.RiskLow:      0,
	types.RiskMedium:   5,
	types.RiskHigh:     15,
	types.RiskCritical: 30,
}

// Input gathers everything Evaluate needs for one Intent's risk pass.
type Input struct {
	Graph            *graph.Graph
	FilesChanged     []string
	Conflicts        []string
	Dependencies     []string
	ScopeHints       []string
	TargetBranch     string
	CurrentRisk      types.RiskLevel
	ImpactEdgeWeight float64 // Σw across impact edges, precomputed by the caller
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Evaluate computes the four signals, five composites, risk level, bomb
// findings, and graph metrics for one Intent (spec §4.6).
func Evaluate(in Input) types.RiskEval {
	g := in.Graph
	metrics := g.Metrics(10)
	rank := g.PageRank()

	n := g.NodeCount()
	dirSpread := countDistinctDirs(in.FilesChanged)
	components := metrics.Components

	entropicLoad := clamp(2*float64(len(in.FilesChanged)) +
		15*float64(len(in.Conflicts)) +
		6*float64(len(in.Dependencies)) +
		3*float64(dirSpread) +
		5*float64(maxInt(0, components-1)))

	importanceRatio := 0.0
	if n > 0 {
		var sum float64
		for _, f := range in.FilesChanged {
			sum += rank[graph.Node{Kind: types.NodeFile, Key: f}]
		}
		importanceRatio = sum / (1.0 / float64(n))
	}
	coreRatio := coreRatioOf(in.FilesChanged)
	targetBonus := 0.0
	if CoreTargets[in.TargetBranch] {
		targetBonus = 10
	}
	riskBonus := riskBonusTable[in.CurrentRisk]
	contextualValue := clamp(minFloat(60, 30*importanceRatio) + 20*coreRatio + targetBonus + riskBonus)

	edgeNodeRatio := 0.0
	if n > 0 {
		edgeNodeRatio = float64(g.EdgeCount()) / float64(n)
	}
	crossDirEdges := countCrossDirEdges(g)
	complexityDelta := clamp(40*metrics.Density + minFloat(30, 10*edgeNodeRatio) +
		3*float64(crossDirEdges) + 5*float64(len(in.ScopeHints)))

	coreTouches := countCoreTouches(in.FilesChanged)
	pathDependence := clamp(20*float64(len(in.Conflicts)) + 4*float64(coreTouches) +
		8*float64(len(in.Dependencies)) + 5*minFloat(20, float64(len(metrics.Cycles))) +
		2*float64(metrics.LongestPath))

	signals := types.Signals{
		EntropicLoad:    entropicLoad,
		ContextualValue: contextualValue,
		ComplexityDelta: complexityDelta,
		PathDependence:  pathDependence,
	}

	riskScore := 0.30*entropicLoad + 0.25*contextualValue + 0.20*complexityDelta + 0.25*pathDependence
	damageScore := 0.50*contextualValue + 0.30*entropicLoad + 0.20*pathDependence
	entropyScore := entropicLoad

	avgOutDegree := avgOutDegreeOfFiles(g, in.FilesChanged)
	uniqueTargets := countUniqueImpactTargets(g, in.FilesChanged, in.Dependencies, in.ScopeHints)
	propagationScore := minFloat(100, minFloat(50, 10*avgOutDegree)+minFloat(50, 3*in.ImpactEdgeWeight+2*float64(uniqueTargets)))

	crossings := uniqueTargets
	containmentScore := maxFloat(0, 1-0.05*float64(crossings)-0.03*float64(maxInt(0, components-1)))

	riskLevel := types.ClassifyRiskScore(riskScore)

	bombs := detectBombs(g, in, metrics, rank)
	impactEdges := flattenImpactEdges(g, in.FilesChanged)

	return types.RiskEval{
		Signals:          signals,
		RiskScore:        riskScore,
		DamageScore:      damageScore,
		EntropyScore:     entropyScore,
		PropagationScore: propagationScore,
		ContainmentScore: containmentScore,
		RiskLevel:        riskLevel,
		GraphMetrics:     metrics,
		ImpactEdges:      impactEdges,
		Bombs:            bombs,
		Diagnostics: map[string]any{
			"importance_ratio": importanceRatio,
			"core_ratio":       coreRatio,
			"avg_out_degree":   avgOutDegree,
			"unique_targets":   uniqueTargets,
		},
	}
}

func countDistinctDirs(files []string) int {
	seen := make(map[string]bool)
	for _, f := range files {
		seen[graph.DirOf(f)] = true
	}
	return len(seen)
}

func coreRatioOf(files []string) float64 {
	if len(files) == 0 {
		return 0
	}
	var matches int
	for _, f := range files {
		for _, prefix := range CorePathPrefixes {
			if strings.HasPrefix(f, prefix) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(files))
}

func countCoreTouches(files []string) int {
	var count int
	for _, f := range files {
		for _, prefix := range CorePathPrefixes {
			if strings.HasPrefix(f, prefix) {
				count++
				break
			}
		}
	}
	return count
}

func countCrossDirEdges(g *graph.Graph) int {
	var count int
	for _, e := range g.Edges {
		if e.From.Kind == types.NodeFile && e.To.Kind == types.NodeFile && graph.DirOf(e.From.Key) != graph.DirOf(e.To.Key) {
			count++
		}
	}
	return count
}

func avgOutDegreeOfFiles(g *graph.Graph, files []string) float64 {
	if len(files) == 0 {
		return 0
	}
	var total int
	for _, f := range files {
		total += len(g.Out(graph.Node{Kind: types.NodeFile, Key: f}))
	}
	return float64(total) / float64(len(files))
}

// flattenImpactEdges lists every outgoing edge from a changed file,
// the flat impact_edges view spec §3 asks RiskEval to carry alongside the
// aggregate graph metrics.
func flattenImpactEdges(g *graph.Graph, files []string) []types.ImpactEdge {
	var out []types.ImpactEdge
	for _, f := range files {
		for _, e := range g.Out(graph.Node{Kind: types.NodeFile, Key: f}) {
			out = append(out, types.ImpactEdge{Source: f, Target: e.To.Key, Type: e.Kind, Weight: e.Weight})
		}
	}
	return out
}

func countUniqueImpactTargets(g *graph.Graph, files, deps, scopes []string) int {
	targets := make(map[string]bool)
	for _, f := range files {
		for _, e := range g.Out(graph.Node{Kind: types.NodeFile, Key: f}) {
			targets[string(e.To.Kind)+":"+e.To.Key] = true
		}
	}
	for _, d := range deps {
		targets["INTENT:"+d] = true
	}
	for _, s := range scopes {
		targets["SCOPE:"+s] = true
	}
	return len(targets)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
