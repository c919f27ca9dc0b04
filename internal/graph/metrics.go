package graph

import (
	"sort"

	"github.com/ghmbegerez/converge/internal/types"
)

const (
	pageRankDamping    = 0.85
	pageRankIterations = 40
	pageRankEpsilon    = 1e-9
)

// PageRank computes weighted PageRank by power iteration over the graph's
// directed edges, using edge weight as the transition-probability mass
// (spec §4.5: "weighted PageRank"). No graph library exists in the
// retrieval pack; this hand-rolled power iteration is the only option.
func (g *Graph) PageRank() map[Node]float64 {
	n := len(g.Nodes)
	rank := make(map[Node]float64, n)
	if n == 0 {
		return rank
	}
	for _, node := range g.Nodes {
		rank[node] = 1.0 / float64(n)
	}

	outWeight := make(map[Node]float64, n)
	for _, node := range g.Nodes {
		var total float64
		for _, e := range g.Out(node) {
			total += e.Weight
		}
		outWeight[node] = total
	}

	for iter := 0; iter < pageRankIterations; iter++ {
		next := make(map[Node]float64, n)
		dangling := 0.0
		for _, node := range g.Nodes {
			next[node] = (1 - pageRankDamping) / float64(n)
			if outWeight[node] == 0 {
				dangling += rank[node]
			}
		}
		danglingShare := pageRankDamping * dangling / float64(n)
		for _, node := range g.Nodes {
			next[node] += danglingShare
		}
		for _, node := range g.Nodes {
			if outWeight[node] == 0 {
				continue
			}
			share := pageRankDamping * rank[node] / outWeight[node]
			for _, e := range g.Out(node) {
				next[e.To] += share * e.Weight
			}
		}

		var delta float64
		for _, node := range g.Nodes {
			d := next[node] - rank[node]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		if delta < pageRankEpsilon {
			break
		}
	}
	return rank
}

// TopKPageRank returns the k highest-ranked nodes, ties broken by node key
// for determinism.
func TopKPageRank(rank map[Node]float64, k int) []types.PageRankEntry {
	type kv struct {
		node Node
		rank float64
	}
	entries := make([]kv, 0, len(rank))
	for n, r := range rank {
		entries = append(entries, kv{n, r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank > entries[j].rank
		}
		return entries[i].node.Key < entries[j].node.Key
	})
	if k > len(entries) {
		k = len(entries)
	}
	out := make([]types.PageRankEntry, 0, k)
	for _, e := range entries[:k] {
		out = append(out, types.PageRankEntry{Node: e.node.Key, Rank: e.rank})
	}
	return out
}

// WeaklyConnectedComponents groups nodes into components using an
// undirected view of the graph (both edge directions traversable).
func (g *Graph) WeaklyConnectedComponents() [][]Node {
	undirected := make(map[Node][]Node)
	for _, e := range g.Edges {
		undirected[e.From] = append(undirected[e.From], e.To)
		undirected[e.To] = append(undirected[e.To], e.From)
	}

	visited := make(map[Node]bool, len(g.Nodes))
	var components [][]Node
	for _, start := range g.Nodes {
		if visited[start] {
			continue
		}
		var component []Node
		stack := []Node{start}
		visited[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, cur)
			for _, neighbor := range undirected[cur] {
				if !visited[neighbor] {
					visited[neighbor] = true
					stack = append(stack, neighbor)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// maxCycles caps simple-cycle enumeration (spec §4.5: "capped at 10").
const maxCycles = 10

// SimpleCycles enumerates simple cycles via DFS with a path stack,
// stopping once maxCycles have been found. Each root's DFS records only
// cycles through that root and never enters earlier roots, so a cycle is
// reported once rather than once per rotation. Cost is acceptable because
// per-Intent graphs are small (one changed-file set, not the whole repo).
func (g *Graph) SimpleCycles() [][]Node {
	var cycles [][]Node
	onStack := make(map[Node]bool)
	done := make(map[Node]bool)
	var path []Node

	var visit func(n Node)
	visit = func(n Node) {
		if len(cycles) >= maxCycles {
			return
		}
		path = append(path, n)
		onStack[n] = true
		for _, e := range g.Out(n) {
			if len(cycles) >= maxCycles {
				break
			}
			if done[e.To] {
				continue
			}
			if onStack[e.To] {
				if e.To == path[0] {
					cycles = append(cycles, append([]Node{}, path...))
				}
				continue
			}
			visit(e.To)
		}
		path = path[:len(path)-1]
		onStack[n] = false
	}

	for _, n := range g.Nodes {
		if len(cycles) >= maxCycles {
			break
		}
		if !onStack[n] {
			visit(n)
		}
		done[n] = true
	}
	return cycles
}

// LongestPath returns the length (edge count) of the longest path in the
// DAG view of the graph. If the graph has a cycle, the DAG view is
// undefined and LongestPath returns the longest path found before a repeat
// node would be revisited on the current DFS branch (a conservative lower
// bound, consistent with spec §4.5's bomb-detection use of this value
// alongside cycle detection rather than in place of it).
func (g *Graph) LongestPath() int {
	memo := make(map[Node]int)
	visiting := make(map[Node]bool)

	var longest func(n Node) int
	longest = func(n Node) int {
		if v, ok := memo[n]; ok {
			return v
		}
		if visiting[n] {
			return 0
		}
		visiting[n] = true
		best := 0
		for _, e := range g.Out(n) {
			if l := longest(e.To) + 1; l > best {
				best = l
			}
		}
		visiting[n] = false
		memo[n] = best
		return best
	}

	best := 0
	for _, n := range g.Nodes {
		if l := longest(n); l > best {
			best = l
		}
	}
	return best
}

// Metrics assembles the full types.GraphMetrics struct spec §4.5 expects.
func (g *Graph) Metrics(topK int) types.GraphMetrics {
	rank := g.PageRank()
	components := g.WeaklyConnectedComponents()
	cycles := g.SimpleCycles()

	cycleKeys := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		keys := make([]string, 0, len(c))
		for _, n := range c {
			keys = append(keys, n.Key)
		}
		cycleKeys = append(cycleKeys, keys)
	}

	return types.GraphMetrics{
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		Density:     g.Density(),
		Components:  len(components),
		PageRankTop: TopKPageRank(rank, topK),
		Cycles:      cycleKeys,
		LongestPath: g.LongestPath(),
	}
}
