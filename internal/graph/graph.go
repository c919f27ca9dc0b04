// Package graph builds and analyzes the typed dependency graph spec §4.5
// describes (FILE/DIRECTORY/SCOPE/DEPENDENCY/INTENT/BRANCH nodes;
// contained_in/co_located/scope_contains/scope_touches/depends_on/
// merge_target/co_change edges), and computes the metrics the risk engine
// consumes: density, weakly connected components, weighted PageRank,
// simple cycle enumeration, and longest DAG path. No graph library exists
// anywhere in the retrieval pack, so this is hand-rolled — a deliberate
// stdlib choice, not an oversight (see DESIGN.md).
package graph

import (
	"sort"
	"strings"

	"github.com/ghmbegerez/converge/internal/types"
)

// Node identifies one graph vertex by its kind and a kind-scoped key
// (a path for FILE/DIRECTORY, a scope name for SCOPE, an Intent ID for
// INTENT, a branch name for BRANCH).
type Node struct {
	Kind types.NodeKind
	Key  string
}

// Edge is a directed, weighted connection between two nodes.
type Edge struct {
	From, To Node
	Kind     types.EdgeKind
	Weight   float64
}

// Graph is the typed directed multigraph spec §4.5 builds per Intent.
type Graph struct {
	Nodes []Node
	Edges []Edge

	nodeIndex map[Node]int
	adjacency map[Node][]Edge // outbound edges, keyed by From
	reverse   map[Node][]Edge // inbound edges, keyed by To
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodeIndex: make(map[Node]int),
		adjacency: make(map[Node][]Edge),
		reverse:   make(map[Node][]Edge),
	}
}

// AddNode inserts n if not already present. Idempotent.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodeIndex[n]; ok {
		return
	}
	g.nodeIndex[n] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

// AddEdge inserts a directed edge, creating its endpoints if absent.
func (g *Graph) AddEdge(from, to Node, kind types.EdgeKind, weight float64) {
	g.AddNode(from)
	g.AddNode(to)
	e := Edge{From: from, To: to, Kind: kind, Weight: weight}
	g.Edges = append(g.Edges, e)
	g.adjacency[from] = append(g.adjacency[from], e)
	g.reverse[to] = append(g.reverse[to], e)
}

// Out returns the outbound edges of n.
func (g *Graph) Out(n Node) []Edge { return g.adjacency[n] }

// In returns the inbound edges of n.
func (g *Graph) In(n Node) []Edge { return g.reverse[n] }

// NodeCount and EdgeCount report the raw sizes metrics are built from.
func (g *Graph) NodeCount() int { return len(g.Nodes) }
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Density is edges / (n(n-1)) for the directed graph, 0 for n <= 1
// (spec §4.5).
func (g *Graph) Density() float64 {
	n := len(g.Nodes)
	if n <= 1 {
		return 0
	}
	return float64(len(g.Edges)) / float64(n*(n-1))
}

// FileAncestorDirs splits a file path into its ancestor directory chain,
// root-first, e.g. "src/auth/login.go" -> ["src", "src/auth"].
func FileAncestorDirs(file string) []string {
	parts := strings.Split(strings.Trim(file, "/"), "/")
	if len(parts) <= 1 {
		return nil
	}
	var dirs []string
	cur := ""
	for _, p := range parts[:len(parts)-1] {
		if cur == "" {
			cur = p
		} else {
			cur = cur + "/" + p
		}
		dirs = append(dirs, cur)
	}
	return dirs
}

// DirOf returns the immediate parent directory of file, or "" at the root.
func DirOf(file string) string {
	idx := strings.LastIndex(file, "/")
	if idx == -1 {
		return ""
	}
	return file[:idx]
}

// sortedNodeKeys is a small helper for deterministic iteration in tests and
// top-k reporting.
func sortedNodeKeys(nodes []Node) []Node {
	out := append([]Node{}, nodes...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Key < out[j].Key
	})
	return out
}
