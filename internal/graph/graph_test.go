package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestFileAncestorDirsRootFirst(t *testing.T) {
	require.Equal(t, []string{"src", "src/auth"}, FileAncestorDirs("src/auth/login.go"))
	require.Nil(t, FileAncestorDirs("readme.md"))
}

func TestDirOf(t *testing.T) {
	require.Equal(t, "src/auth", DirOf("src/auth/login.go"))
	require.Equal(t, "", DirOf("readme.md"))
}

func TestBuildAddsFileAndDirectoryNodes(t *testing.T) {
	g := Build(BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		FilesChanged: []string{"src/auth/login.go"},
	})
	require.Contains(t, g.Nodes, Node{Kind: types.NodeFile, Key: "src/auth/login.go"})
	require.Contains(t, g.Nodes, Node{Kind: types.NodeDirectory, Key: "src"})
	require.Contains(t, g.Nodes, Node{Kind: types.NodeDirectory, Key: "src/auth"})
}

func TestBuildColocatesFilesInSameDirectory(t *testing.T) {
	g := Build(BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		FilesChanged: []string{"src/a.go", "src/b.go"},
	})
	a, b := Node{Kind: types.NodeFile, Key: "src/a.go"}, Node{Kind: types.NodeFile, Key: "src/b.go"}
	require.True(t, hasEdge(g.Out(a), b, types.EdgeCoLocated))
	require.True(t, hasEdge(g.Out(b), a, types.EdgeCoLocated))
}

func TestBuildScopeHintDistinguishesContainsFromTouches(t *testing.T) {
	g := Build(BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		FilesChanged: []string{"src/auth/login.go", "src/billing/pay.go"},
		ScopeHints:   []string{"auth"},
	})
	scope := Node{Kind: types.NodeScope, Key: "auth"}
	authFile := Node{Kind: types.NodeFile, Key: "src/auth/login.go"}
	billingFile := Node{Kind: types.NodeFile, Key: "src/billing/pay.go"}
	require.True(t, hasEdge(g.Out(scope), authFile, types.EdgeScopeContains))
	require.True(t, hasEdge(g.Out(scope), billingFile, types.EdgeScopeTouches))
}

func TestBuildDependsOnAndMergeTargetEdges(t *testing.T) {
	g := Build(BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		Dependencies: []string{"intent-0"},
	})
	intent := Node{Kind: types.NodeIntent, Key: "intent-1"}
	require.True(t, hasEdge(g.Out(intent), Node{Kind: types.NodeIntent, Key: "intent-0"}, types.EdgeDependsOn))
	require.True(t, hasEdge(g.Out(intent), Node{Kind: types.NodeBranch, Key: "main"}, types.EdgeMergeTarget))
}

func TestBuildCoChangeEdgesWeightCapsAtOne(t *testing.T) {
	g := Build(BuildInput{
		IntentID: "intent-1",
		Branch:   "main",
		CoChanges: []CoChangePair{
			{FileA: "a.go", FileB: "b.go", Pairs: 50},
		},
	})
	a, b := Node{Kind: types.NodeFile, Key: "a.go"}, Node{Kind: types.NodeFile, Key: "b.go"}
	edges := g.Out(a)
	require.Len(t, edges, 1)
	require.Equal(t, types.EdgeCoChange, edges[0].Kind)
	require.Equal(t, 1.0, edges[0].Weight)
	require.True(t, hasEdge(g.Out(b), a, types.EdgeCoChange))
}

func TestMetricsComponentsAndDensity(t *testing.T) {
	g := Build(BuildInput{
		IntentID:     "intent-1",
		Branch:       "main",
		FilesChanged: []string{"a.go", "b.go"},
	})
	metrics := g.Metrics(5)
	require.GreaterOrEqual(t, metrics.Components, 1)
	require.GreaterOrEqual(t, metrics.Density, 0.0)
}

func hasEdge(edges []Edge, to Node, kind types.EdgeKind) bool {
	for _, e := range edges {
		if e.To == to && e.Kind == kind {
			return true
		}
	}
	return false
}
