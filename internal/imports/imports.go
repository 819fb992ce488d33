// Package imports implements IMPORT: resolving a parsed entry file's
// import declarations into a deduplicated, topologically ordered
// dependency graph.
package imports

import (
	"strconv"
	"strings"

	"urd/internal/ast"
	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/parse"
	"urd/internal/span"
)

// ErrKind enumerates the Reader failure modes IMPORT must translate
// into diagnostics.
type ErrKind int

const (
	NotFound ErrKind = iota
	PermissionDenied
	InvalidUTF8
	IOError
)

// ReadError is returned by Reader.ReadFile on failure. Message carries
// the underlying detail for IOError; it is ignored for the other kinds.
type ReadError struct {
	Kind    ErrKind
	Message string
}

func (e *ReadError) Error() string { return e.Message }

// Reader is the abstract file system IMPORT consumes. The core never
// touches disk directly; callers (the CLI, the LSP, tests) supply their
// own implementation.
type Reader interface {
	// ReadFile returns the UTF-8 source at the given project-relative
	// path, or a *ReadError describing why it could not be read.
	ReadFile(fsPath string) (string, error)
	// CanonicalFilename reports the on-disk casing of wrong within dir,
	// or ("", false) if the reader can't determine one (e.g. the
	// filesystem is already case-sensitive and matched exactly).
	CanonicalFilename(dir, wrong string) (string, bool)
}

// Result is everything IMPORT hands to LINK.
type Result struct {
	Graph *graph.Graph
	Order []string // topological order: dependencies before dependants
}

type walker struct {
	reader  Reader
	diags   *diag.Collector
	cfg     config.Compiler
	graph   *graph.Graph
	onStack map[string]int // path -> position in the current DFS stack
	stack   []string
	stems   map[string]string // file stem -> first path seen with it
}

// Run executes IMPORT starting from entryPath and entrySrc (the entry
// file's already-read source; IMPORT parses it itself so that PARSE
// diagnostics for every reachable file share one collector).
func Run(entryPath, entrySrc string, reader Reader, diags *diag.Collector, cfg config.Compiler) *Result {
	w := &walker{
		reader:  reader,
		diags:   diags,
		cfg:     cfg,
		graph:   graph.New(),
		onStack: make(map[string]int),
		stems:   make(map[string]string),
	}

	normEntry := normalizePath(entryPath)
	w.graph.EntryPath = normEntry

	if file, ok := w.loadAndParse(normEntry, entrySrc); ok {
		w.visit(normEntry, file, 0)
	}

	order := w.graph.TopologicalOrder()
	return &Result{Graph: w.graph, Order: order}
}

// loadAndParse registers a file's node (if PARSE succeeds) and returns
// its AST. It does not recurse into imports; callers do that via visit.
func (w *walker) loadAndParse(normPath, src string) (*ast.File, bool) {
	if n, ok := w.graph.Nodes[normPath]; ok {
		return n.AST, true
	}
	w.checkStemCollision(normPath)

	file, ok := parse.File(normPath, src, w.diags, w.cfg)
	if !ok {
		return nil, false
	}

	imports := collectImportPaths(file)
	w.graph.AddNode(&graph.FileNode{Path: normPath, AST: file, Imports: imports})
	return file, true
}

// checkStemCollision emits URD203 (warning) the first time a second
// distinct path shares a file stem with an already-loaded file.
func (w *walker) checkStemCollision(normPath string) {
	stem := graph.FileStem(normPath)
	if first, ok := w.stems[stem]; ok && first != normPath {
		w.diags.Warnf("URD203", span.New(normPath, 1, 1, 1),
			"file stem \""+stem+"\" collides with "+first+"; section ids may be ambiguous across files")
		return
	}
	w.stems[stem] = normPath
}

// visit walks a loaded file's import declarations depth-first, reading,
// normalizing, parsing, and recursing into each newly discovered
// dependency. depth is the current stack depth (the entry file is 0).
func (w *walker) visit(normPath string, file *ast.File, depth int) {
	w.onStack[normPath] = len(w.stack)
	w.stack = append(w.stack, normPath)
	defer func() {
		delete(w.onStack, normPath)
		w.stack = w.stack[:len(w.stack)-1]
	}()

	dir := dirOf(normPath)
	seenInFile := make(map[string]bool)

	for _, entry := range file.Frontmatter.Entries {
		imp, ok := entry.Value.(*ast.ImportDecl)
		if !ok {
			continue
		}
		w.followImport(normPath, dir, imp, depth, seenInFile)
	}
}

func (w *walker) followImport(fromPath, fromDir string, imp *ast.ImportDecl, depth int, seenInFile map[string]bool) {
	raw := strings.TrimSpace(imp.Path)
	if raw == "" {
		w.diags.Errorf("URD211", imp.Span, "import path is empty")
		return
	}

	normTarget, rejCode, rejMsg := validateImportPath(fromDir, raw)
	if rejCode != "" {
		w.diags.Errorf(rejCode, imp.Span, rejMsg)
		return
	}

	if normTarget == fromPath {
		w.diags.Errorf("URD207", imp.Span, "file imports itself: "+normTarget)
		return
	}

	if pos, onStack := w.onStack[normTarget]; onStack {
		cycle := append(append([]string{}, w.stack[pos:]...), normTarget)
		w.diags.Errorf("URD202", imp.Span, "import cycle detected: "+strings.Join(cycle, " -> "))
		return
	}

	// One edge per distinct (file, target) pair even if imported
	// more than once in the same file.
	if !seenInFile[normTarget] {
		seenInFile[normTarget] = true
		w.graph.AddEdge(fromPath, normTarget)
	}

	if depth+1 > w.cfg.MaxImportDepth {
		w.diags.Errorf("URD204", imp.Span,
			"import depth exceeds "+strconv.Itoa(w.cfg.MaxImportDepth)+" at "+normTarget)
		return
	}

	if _, loaded := w.graph.Nodes[normTarget]; loaded {
		// Re-import of an already-loaded file: the edge above is
		// sufficient, no reload and no re-traversal needed.
		return
	}

	if canon, differs := w.reader.CanonicalFilename(fromDir, raw); differs && canon != "" {
		canonNorm := normalizePath(joinPath(fromDir, canon))
		if canonNorm != normTarget {
			w.diags.Warnf("URD206", imp.Span,
				"import path casing \""+raw+"\" does not match the file system; using canonical form "+canonNorm)
			normTarget = canonNorm
		}
	}

	src, err := w.reader.ReadFile(normTarget)
	if err != nil {
		w.emitReadError(imp.Span, normTarget, err)
		return
	}
	if int64(len(src)) > w.cfg.MaxFileBytes {
		w.diags.Errorf("URD103", imp.Span,
			"source exceeds the maximum file size of "+strconv.FormatInt(w.cfg.MaxFileBytes, 10)+" bytes: "+normTarget)
		return
	}

	file, ok := w.loadAndParse(normTarget, src)
	if !ok {
		// Catastrophic PARSE failure: the file never enters the graph,
		// so its own imports are never followed.
		return
	}
	w.visit(normTarget, file, depth+1)
}

func (w *walker) emitReadError(sp span.Span, path string, err error) {
	re, ok := err.(*ReadError)
	if !ok {
		w.diags.Errorf("URD214", sp, "error reading "+path+": "+err.Error())
		return
	}
	switch re.Kind {
	case NotFound:
		w.diags.Errorf("URD201", sp, "imported file not found: "+path)
	case InvalidUTF8:
		w.diags.Errorf("URD212", sp, "imported file is not valid UTF-8: "+path)
	case PermissionDenied:
		w.diags.Errorf("URD213", sp, "permission denied reading: "+path)
	default:
		w.diags.Errorf("URD214", sp, "error reading "+path+": "+re.Message)
	}
}

// collectImportPaths returns the normalized import paths referenced by
// a file's frontmatter for graph bookkeeping and diagnostics that need
// the raw list (not used for traversal, which is driven by visit).
func collectImportPaths(file *ast.File) []string {
	var out []string
	dir := dirOf(file.Path)
	for _, entry := range file.Frontmatter.Entries {
		imp, ok := entry.Value.(*ast.ImportDecl)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(imp.Path)
		if raw == "" {
			continue
		}
		norm, rejCode, _ := validateImportPath(dir, raw)
		if rejCode == "" {
			out = append(out, norm)
		}
	}
	return out
}

// validateImportPath normalizes raw (relative to fromDir) and validates
// it per the IMPORT path rules, returning a non-empty URD code and
// message on rejection.
func validateImportPath(fromDir, raw string) (normalized, code, message string) {
	p := strings.ReplaceAll(raw, "\\", "/")
	p = strings.TrimSpace(p)

	if strings.HasPrefix(p, "/") {
		return "", "URD209", "import path must be relative, not absolute: " + raw
	}
	if p == "" {
		return "", "URD211", "import path is empty"
	}
	if !strings.HasSuffix(p, ".urd.md") {
		return "", "URD210", "import path must end in .urd.md: " + raw
	}

	joined := joinPath(fromDir, p)
	norm := normalizePath(joined)

	if strings.HasPrefix(norm, "../") || norm == ".." {
		return "", "URD208", "import escapes the project root: " + raw
	}

	return norm, "", ""
}

// dirOf returns the POSIX-style parent directory of a normalized path,
// or "" for a path with no directory component.
func dirOf(normPath string) string {
	if idx := strings.LastIndexByte(normPath, '/'); idx >= 0 {
		return normPath[:idx]
	}
	return ""
}

// joinPath joins a directory and a relative path POSIX-style.
func joinPath(dir, rel string) string {
	if dir == "" {
		return rel
	}
	return dir + "/" + rel
}

// normalizePath resolves "." and ".." segments lexically and strips a
// leading "./", producing the canonical deduplication key.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	segments := strings.Split(p, "/")
	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}
