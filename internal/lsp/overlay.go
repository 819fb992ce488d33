package lsp

import "urd/internal/imports"

// overlayReader layers an editor's in-memory, possibly-unsaved buffers
// over a base Reader backed by disk. IMPORT asks for paths by their
// normalized project-relative form, which is exactly how sourceByPath is
// keyed, so lookups need no translation.
type overlayReader struct {
	base    imports.Reader
	sources map[string]string
}

func newOverlayReader(base imports.Reader, sources map[string]string) *overlayReader {
	return &overlayReader{base: base, sources: sources}
}

func (r *overlayReader) ReadFile(fsPath string) (string, error) {
	if src, ok := r.sources[fsPath]; ok {
		return src, nil
	}
	return r.base.ReadFile(fsPath)
}

func (r *overlayReader) CanonicalFilename(dir, wrong string) (string, bool) {
	return r.base.CanonicalFilename(dir, wrong)
}
