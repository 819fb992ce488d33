package analyze

import (
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/symtab"
)

// Run extracts a FactSet from the linked world, builds its
// PropertyDependencyIndex, and reports advisory dependency diagnostics.
func Run(g *graph.Graph, order []string, symbols *symtab.Table, diags *diag.Collector) (*FactSet, *PropertyDependencyIndex) {
	facts := ExtractFacts(g, order, symbols)
	idx := BuildPropertyDependencyIndex(facts)
	ReportDependencyDiagnostics(facts, idx, diags)
	ReportReachabilityDiagnostics(facts, symbols, diags)
	return facts, idx
}
