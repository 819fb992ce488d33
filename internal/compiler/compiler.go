// Package compiler wires PARSE, IMPORT, LINK, VALIDATE, ANALYZE, and EMIT
// into the one entry point a front-end (the CLI, the LSP) actually calls.
package compiler

import (
	"github.com/google/uuid"

	"urd/internal/analyze"
	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/emit"
	"urd/internal/graph"
	"urd/internal/imports"
	"urd/internal/link"
	"urd/internal/logging"
	"urd/internal/span"
	"urd/internal/symtab"
	"urd/internal/validate"
)

// Result is everything one compilation produces. World and Success are
// the published contract: World is only ever populated when Success is
// true. Graph, Symbols, Facts, and PropertyIndex are exposed beyond that
// contract for callers — the diff engine and the LSP — that need to
// inspect a successful compilation's shape without re-running it.
type Result struct {
	Success       bool
	World         string
	Diagnostics   []diag.Diagnostic
	Graph         *graph.Graph
	Order         []string
	Symbols       *symtab.Table
	Contexts      map[string]*link.FileContext
	Facts         *analyze.FactSet
	PropertyIndex *analyze.PropertyDependencyIndex
}

// Compile runs the full pipeline starting from entryPath, reading every
// file (the entry and every transitive import) through reader. EMIT runs
// only once every earlier phase has reported zero Error-severity
// diagnostics; otherwise Result.World is empty and Result.Success is
// false, per the core's "no world on error" contract.
func Compile(entryPath string, reader imports.Reader, cfg config.Compiler) (*Result, error) {
	requestID := uuid.NewString()
	log := logging.Get(logging.Compiler).With("request_id", requestID, "entry", entryPath)
	log.Debug("compile starting")

	diags := diag.NewCollector()

	entrySrc, err := reader.ReadFile(entryPath)
	if err != nil {
		emitEntryReadError(entryPath, err, diags)
		log.Warnw("entry file unreadable", "error", err)
		return &Result{Diagnostics: diags.Sorted()}, nil
	}

	imp := imports.Run(entryPath, entrySrc, reader, diags, cfg)
	linked := link.Run(imp.Graph, imp.Order, diags)
	validate.Run(imp.Graph, imp.Order, linked.Symbols, diags)
	facts, idx := analyze.Run(imp.Graph, imp.Order, linked.Symbols, diags)

	result := &Result{
		Graph:         imp.Graph,
		Order:         imp.Order,
		Symbols:       linked.Symbols,
		Contexts:      linked.Contexts,
		Facts:         facts,
		PropertyIndex: idx,
	}

	if diags.HasErrors() {
		result.Diagnostics = diags.Sorted()
		log.Warnw("compile failed", "error_count", diags.Len())
		return result, nil
	}

	world, err := emit.Run(imp.Graph, linked.Symbols)
	if err != nil {
		return nil, err
	}

	result.Success = true
	result.World = world
	result.Diagnostics = diags.Sorted()
	log.Debugw("compile succeeded", "diagnostic_count", diags.Len())
	return result, nil
}

// Diagnostics runs every phase through ANALYZE and reports the resulting
// Result, skipping EMIT entirely: World is always empty and Success is
// always false, since neither is meaningful without EMIT having run. This
// is the boundary an editor integration calls on every keystroke: it
// wants live diagnostics, never a rendered artifact, and running EMIT on
// an incomplete edit would be wasted work at best and a misleading
// half-written file at worst.
func Diagnostics(entryPath string, reader imports.Reader, cfg config.Compiler) *Result {
	diags := diag.NewCollector()

	entrySrc, err := reader.ReadFile(entryPath)
	if err != nil {
		emitEntryReadError(entryPath, err, diags)
		return &Result{Diagnostics: diags.Sorted(), Graph: graph.New(), Symbols: symtab.New()}
	}

	imp := imports.Run(entryPath, entrySrc, reader, diags, cfg)
	linked := link.Run(imp.Graph, imp.Order, diags)
	validate.Run(imp.Graph, imp.Order, linked.Symbols, diags)
	facts, idx := analyze.Run(imp.Graph, imp.Order, linked.Symbols, diags)

	return &Result{
		Diagnostics:   diags.Sorted(),
		Graph:         imp.Graph,
		Order:         imp.Order,
		Symbols:       linked.Symbols,
		Contexts:      linked.Contexts,
		Facts:         facts,
		PropertyIndex: idx,
	}
}

func emitEntryReadError(entryPath string, err error, diags *diag.Collector) {
	sp := span.New(entryPath, 1, 1, 1)
	re, ok := err.(*imports.ReadError)
	if !ok {
		diags.Errorf("URD214", sp, "error reading "+entryPath+": "+err.Error())
		return
	}
	switch re.Kind {
	case imports.NotFound:
		diags.Errorf("URD201", sp, "entry file not found: "+entryPath)
	case imports.InvalidUTF8:
		diags.Errorf("URD212", sp, "entry file is not valid UTF-8: "+entryPath)
	case imports.PermissionDenied:
		diags.Errorf("URD213", sp, "permission denied reading: "+entryPath)
	default:
		diags.Errorf("URD214", sp, "error reading "+entryPath+": "+re.Message)
	}
}
