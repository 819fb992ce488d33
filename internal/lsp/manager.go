// Package lsp wraps the compiler core in the three operations an editor
// integration needs: live diagnostics without ever running EMIT,
// position-to-definition lookup, and reference-slot-aware completion.
// Adapted from the teacher's internal/world/lsp Manager shape — a
// mutex-guarded handle over a workspace root with a lazy index and a
// batch-query surface — generalized from Mangle/datalog fact projection
// to .urd.md compile-on-demand semantics.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"urd/internal/compiler"
	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/imports"
	"urd/internal/logging"
)

// Manager is the workspace-scoped handle an editor integration holds for
// the lifetime of one open project. It never touches EMIT: every
// operation it exposes stops at ANALYZE.
type Manager struct {
	mu            sync.RWMutex
	workspaceRoot string
	reader        imports.Reader
	cfg           config.Compiler
	indexed       bool
	cache         map[string]*compiler.Result // entryPath -> last Diagnostics() result
}

// NewManager builds a Manager rooted at workspaceRoot, reading files
// through reader (the real file system in production, an in-memory
// fake in tests).
func NewManager(workspaceRoot string, reader imports.Reader, cfg config.Compiler) *Manager {
	return &Manager{
		workspaceRoot: workspaceRoot,
		reader:        reader,
		cfg:           cfg,
		cache:         make(map[string]*compiler.Result),
	}
}

// Initialize warms the cache by running diagnostics-only compiles for
// every known entry point concurrently, via golang.org/x/sync/errgroup
// the same way the teacher's own concurrent fan-out work is structured.
// A workspace with many independent worlds (one entry per world) gets
// this for free; a single-entry workspace still benefits from running
// the first compile before the editor's first request blocks on it.
func (m *Manager) Initialize(ctx context.Context, entryPaths []string) error {
	g, _ := errgroup.WithContext(ctx)
	results := make([]*compiler.Result, len(entryPaths))
	for i, entryPath := range entryPaths {
		i, entryPath := i, entryPath
		g.Go(func() error {
			results[i] = compiler.Diagnostics(entryPath, m.reader, m.cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, entryPath := range entryPaths {
		m.cache[entryPath] = results[i]
	}
	m.indexed = true
	logging.Get(logging.LSP).Infow("workspace indexed", "entries", len(entryPaths))
	return nil
}

// Diagnostics recompiles entryPath with sourceByPath layered over disk
// and returns the resulting collector. It never runs EMIT.
func (m *Manager) Diagnostics(sourceByPath map[string]string, entryPath string) *diag.Collector {
	result := m.compileDiagnostics(sourceByPath, entryPath)
	collector := diag.NewCollector()
	for _, d := range result.Diagnostics {
		collector.Add(d)
	}
	return collector
}

// SymbolAt recompiles entryPath with sourceByPath layered over disk and
// resolves whatever symbol (if any) sits under pos.
func (m *Manager) SymbolAt(sourceByPath map[string]string, entryPath string, pos Position) (*SymbolInfo, bool) {
	result := m.compileDiagnostics(sourceByPath, entryPath)
	node, ok := result.Graph.Nodes[pos.Path]
	if !ok {
		return nil, false
	}
	return ResolveSymbolAt(node.AST, result.Symbols, pos)
}

// CompletionContext recompiles entryPath with sourceByPath layered over
// disk and classifies the reference slot under pos, listing the symbols
// visible from pos.Path that could complete it.
func (m *Manager) CompletionContext(sourceByPath map[string]string, entryPath string, pos Position) *CompletionInfo {
	result := m.compileDiagnostics(sourceByPath, entryPath)
	line := lineAt(sourceByPath[pos.Path], pos.Line)
	ctx := result.Contexts[pos.Path]
	return ResolveCompletionContext(line, pos, result.Symbols, ctx)
}

func (m *Manager) compileDiagnostics(sourceByPath map[string]string, entryPath string) *compiler.Result {
	reader := newOverlayReader(m.reader, sourceByPath)
	result := compiler.Diagnostics(entryPath, reader, m.cfg)

	m.mu.Lock()
	m.cache[entryPath] = result
	m.mu.Unlock()

	return result
}

// lineAt returns the 1-based line n of src, or "" past end of file.
func lineAt(src string, n uint32) string {
	if n == 0 {
		return ""
	}
	line := uint32(1)
	start := 0
	for i := 0; i < len(src); i++ {
		if line == n {
			end := i
			for end < len(src) && src[end] != '\n' {
				end++
			}
			return src[start:end]
		}
		if src[i] == '\n' {
			line++
			start = i + 1
		}
	}
	if line == n {
		return src[start:]
	}
	return ""
}

// request is one newline-delimited JSON line ServeStdio reads: a method
// name plus its raw parameters, dispatched to the matching Manager
// method. This is a minimal transport, not a JSON-RPC/LSP-wire-protocol
// implementation — the contract this package honors is the three
// methods above, not any particular wire format.
type request struct {
	Method       string            `json:"method"`
	EntryPath    string            `json:"entry_path"`
	SourceByPath map[string]string `json:"source_by_path"`
	Position     *Position         `json:"position,omitempty"`
}

// ServeStdio reads newline-delimited request objects from r and writes
// newline-delimited JSON responses to w until r is exhausted or ctx is
// canceled, mirroring the teacher's ServeStdio(ctx) error entry point.
func (m *Manager) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			if encErr := enc.Encode(map[string]string{"error": err.Error()}); encErr != nil {
				return encErr
			}
			continue
		}

		resp, err := m.dispatch(req)
		if err != nil {
			resp = map[string]string{"error": err.Error()}
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (m *Manager) dispatch(req request) (any, error) {
	switch req.Method {
	case "diagnostics":
		return m.Diagnostics(req.SourceByPath, req.EntryPath).Sorted(), nil
	case "symbol":
		if req.Position == nil {
			return nil, fmt.Errorf("symbol request missing position")
		}
		info, ok := m.SymbolAt(req.SourceByPath, req.EntryPath, *req.Position)
		if !ok {
			return map[string]bool{"found": false}, nil
		}
		return info, nil
	case "completion":
		if req.Position == nil {
			return nil, fmt.Errorf("completion request missing position")
		}
		return m.CompletionContext(req.SourceByPath, req.EntryPath, *req.Position), nil
	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}
