// Package link implements LINK: a two-pass walk over the topologically
// ordered dependency graph that first collects every declaration into
// the symbol table, then resolves every reference and fills the AST's
// annotation slots in place.
package link

import (
	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/symtab"
)

// FileContext is the per-file scoping information computed once before
// either pass: the set of normalized paths visible from this file (the
// file itself plus the transitive closure of its imports), and the
// local name -> compiled id map for sections declared directly in it.
type FileContext struct {
	VisibleScope  map[string]bool
	LocalSections map[string]string
}

// WorldConfig holds the entry file's `world.start` / `world.entry`
// fields, deferred from Collect to Resolve since they reference
// locations/sequences that may not exist yet when first seen.
type WorldConfig struct {
	Start *ast.KV
	Entry *ast.KV
}

// Result is everything LINK hands to VALIDATE and ANALYZE.
type Result struct {
	Symbols  *symtab.Table
	Contexts map[string]*FileContext
}

// Run executes both LINK passes over g in topological order, appending
// diagnostics to diags and mutating g's ASTs in place with resolved
// annotations.
func Run(g *graph.Graph, order []string, diags *diag.Collector) *Result {
	contexts := buildFileContexts(g, order)

	symbols := collect(g, order, contexts, diags)
	resolve(g, order, symbols, contexts, diags)

	return &Result{Symbols: symbols, Contexts: contexts}
}

// buildFileContexts computes each file's visible scope as the
// transitive closure of its import edges (graph.Edges is Src-imports-
// Tgt) plus itself, and an empty local-sections map to be filled
// during Collect.
func buildFileContexts(g *graph.Graph, order []string) map[string]*FileContext {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Src] = append(adj[e.Src], e.Tgt)
	}

	contexts := make(map[string]*FileContext, len(order))
	for _, path := range order {
		visible := map[string]bool{path: true}
		var stack []string
		stack = append(stack, adj[path]...)
		for len(stack) > 0 {
			n := len(stack) - 1
			p := stack[n]
			stack = stack[:n]
			if visible[p] {
				continue
			}
			visible[p] = true
			stack = append(stack, adj[p]...)
		}
		contexts[path] = &FileContext{VisibleScope: visible, LocalSections: make(map[string]string)}
	}
	return contexts
}
