package graph

import (
	"strings"

	"github.com/ghmbegerez/converge/internal/types"
)

// CoChangePair is one historical co-change observation between two files,
// used by step 5 of the builder (spec §4.5).
type CoChangePair struct {
	FileA, FileB string
	Pairs        int
}

// BuildInput gathers everything the builder needs for one Intent.
type BuildInput struct {
	IntentID     string
	Branch       string
	FilesChanged []string
	ScopeHints   []string
	Dependencies []string
	CoChanges    []CoChangePair
}

func fileNode(path string) Node { return Node{Kind: types.NodeFile, Key: path} }
func dirNode(path string) Node  { return Node{Kind: types.NodeDirectory, Key: path} }
func scopeNode(name string) Node { return Node{Kind: types.NodeScope, Key: name} }
func intentNode(id string) Node { return Node{Kind: types.NodeIntent, Key: id} }
func branchNode(name string) Node { return Node{Kind: types.NodeBranch, Key: name} }

// Build constructs the graph for one Intent per the five steps of spec §4.5.
func Build(in BuildInput) *Graph {
	g := New()

	// Step 1: FILE nodes, DIRECTORY ancestor chain, contained_in edges.
	for _, f := range in.FilesChanged {
		fn := fileNode(f)
		g.AddNode(fn)
		dirs := FileAncestorDirs(f)
		var prev Node
		for i, d := range dirs {
			dn := dirNode(d)
			g.AddNode(dn)
			if i == 0 {
				g.AddEdge(fn, dn, types.EdgeContainedIn, types.EdgeWeight(types.EdgeContainedIn))
			} else {
				g.AddEdge(prev, dn, types.EdgeContainedIn, types.EdgeWeight(types.EdgeContainedIn))
			}
			prev = dn
		}
	}

	// Step 2: co_located edges pairwise within each directory, bidirectional.
	byDir := make(map[string][]string)
	for _, f := range in.FilesChanged {
		byDir[DirOf(f)] = append(byDir[DirOf(f)], f)
	}
	for _, files := range byDir {
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				a, b := fileNode(files[i]), fileNode(files[j])
				w := types.EdgeWeight(types.EdgeCoLocated)
				g.AddEdge(a, b, types.EdgeCoLocated, w)
				g.AddEdge(b, a, types.EdgeCoLocated, w)
			}
		}
	}

	// Step 3: SCOPE nodes; scope_contains if the scope hint occurs
	// (case-folded) in the file path, else scope_touches.
	for _, scope := range in.ScopeHints {
		sn := scopeNode(scope)
		g.AddNode(sn)
		lowerScope := strings.ToLower(scope)
		for _, f := range in.FilesChanged {
			fn := fileNode(f)
			if strings.Contains(strings.ToLower(f), lowerScope) {
				g.AddEdge(sn, fn, types.EdgeScopeContains, types.EdgeWeight(types.EdgeScopeContains))
			} else {
				g.AddEdge(sn, fn, types.EdgeScopeTouches, types.EdgeWeight(types.EdgeScopeTouches))
			}
		}
	}

	// Step 4: INTENT and BRANCH nodes, depends_on edges, one merge_target edge.
	in4 := intentNode(in.IntentID)
	g.AddNode(in4)
	for _, dep := range in.Dependencies {
		g.AddEdge(in4, intentNode(dep), types.EdgeDependsOn, types.EdgeWeight(types.EdgeDependsOn))
	}
	bn := branchNode(in.Branch)
	g.AddEdge(in4, bn, types.EdgeMergeTarget, types.EdgeWeight(types.EdgeMergeTarget))

	// Step 5: co_change edges weighted min(1.0, 0.1 * pairs).
	for _, cc := range in.CoChanges {
		w := 0.1 * float64(cc.Pairs)
		if w > 1.0 {
			w = 1.0
		}
		a, b := fileNode(cc.FileA), fileNode(cc.FileB)
		g.AddEdge(a, b, types.EdgeCoChange, w)
		g.AddEdge(b, a, types.EdgeCoChange, w)
	}

	return g
}
