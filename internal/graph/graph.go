// Package graph implements the dependency graph built by IMPORT: an
// ordered map from normalized file path to FileNode, an edge list, and
// topological ordering via Kahn's algorithm with a min-heap tiebreak on
// path string for deterministic output.
package graph

import (
	"container/heap"
	"strings"

	"urd/internal/ast"
)

// Edge is a directed import edge: Src imports Tgt.
type Edge struct {
	Src string
	Tgt string
}

// FileNode is one graph vertex: the parsed AST plus the normalized
// import paths it declares.
type FileNode struct {
	Path    string
	AST     *ast.File
	Imports []string
}

// Graph is the dependency graph assembled by IMPORT.
type Graph struct {
	Nodes     map[string]*FileNode
	Order     []string // insertion order, for iteration stability before topo sort
	Edges     []Edge
	EntryPath string
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*FileNode)}
}

// AddNode inserts a FileNode if its path is new.
func (g *Graph) AddNode(n *FileNode) {
	if _, ok := g.Nodes[n.Path]; ok {
		return
	}
	g.Nodes[n.Path] = n
	g.Order = append(g.Order, n.Path)
}

// AddEdge appends a directed edge src->tgt.
func (g *Graph) AddEdge(src, tgt string) {
	g.Edges = append(g.Edges, Edge{Src: src, Tgt: tgt})
}

// FileStem returns the filename without directory or the .urd.md suffix,
// used to compose compiled section ids.
func FileStem(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".urd.md")
	return base
}

// pathHeap is a min-heap of path strings used to break ties
// deterministically among simultaneously-ready nodes in Kahn's
// algorithm.
type pathHeap []string

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(string)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns all graph nodes ordered so that every
// dependency precedes its dependants, breaking ties by path string via
// a min-heap. The entry path, if reachable, is last.
func (g *Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	for p := range g.Nodes {
		indegree[p] = 0
	}
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Tgt]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.Src]; !ok {
			continue
		}
		// Edge Src->Tgt means Src depends on Tgt, so Tgt must precede Src:
		// reverse the arrow for Kahn's "precedes" adjacency.
		adj[e.Tgt] = append(adj[e.Tgt], e.Src)
		indegree[e.Src]++
	}

	var ready pathHeap
	for p, d := range indegree {
		if d == 0 {
			ready = append(ready, p)
		}
	}
	heap.Init(&ready)

	order := make([]string, 0, len(g.Nodes))
	seen := make(map[string]int, len(g.Nodes))
	for k, v := range indegree {
		seen[k] = v
	}

	for ready.Len() > 0 {
		p := heap.Pop(&ready).(string)
		order = append(order, p)
		next := append([]string(nil), adj[p]...)
		// Sort next for deterministic indegree-decrement visitation order
		// before re-heaping; not strictly required for correctness but
		// keeps behavior reproducible under future refactors.
		for i := 1; i < len(next); i++ {
			for j := i; j > 0 && next[j] < next[j-1]; j-- {
				next[j], next[j-1] = next[j-1], next[j]
			}
		}
		for _, n := range next {
			seen[n]--
			if seen[n] == 0 {
				heap.Push(&ready, n)
			}
		}
	}

	return order
}

// ReachableDFS walks edges depth-first from start, bounded by maxDepth.
// It returns the set of visited paths and, on a cycle, the path of
// on-stack nodes from the cycle's origin back to itself.
func (g *Graph) ReachableDFS(start string, maxDepth int) (visited map[string]bool, cyclePath []string) {
	visited = make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var walk func(p string, depth int) []string
	walk = func(p string, depth int) []string {
		if depth > maxDepth {
			return nil
		}
		visited[p] = true
		onStack[p] = true
		stack = append(stack, p)
		for _, e := range g.Edges {
			if e.Src != p {
				continue
			}
			if onStack[e.Tgt] {
				// Build the cycle path from the offender back to itself.
				cyc := []string{}
				started := false
				for _, s := range stack {
					if s == e.Tgt {
						started = true
					}
					if started {
						cyc = append(cyc, s)
					}
				}
				cyc = append(cyc, e.Tgt)
				return cyc
			}
			if !visited[e.Tgt] {
				if found := walk(e.Tgt, depth+1); found != nil {
					return found
				}
			}
		}
		onStack[p] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	cyclePath = walk(start, 0)
	return visited, cyclePath
}
