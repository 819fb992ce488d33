package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/config"
)

// fakeReader is an in-memory imports.Reader. Unlike the fake in
// internal/imports's own tests, it reports a missing file with a plain
// error rather than an *imports.ReadError.
type fakeReader struct {
	files map[string]string
}

func newFakeReader() *fakeReader {
	return &fakeReader{files: make(map[string]string)}
}

func (r *fakeReader) ReadFile(fsPath string) (string, error) {
	src, ok := r.files[fsPath]
	if !ok {
		return "", &notFoundError{}
	}
	return src, nil
}

func (r *fakeReader) CanonicalFilename(dir, wrong string) (string, bool) {
	return "", false
}

// notFoundError satisfies error without using imports.ReadError;
// emitEntryReadError falls back to URD214 for any error it doesn't
// recognize as *imports.ReadError, which is the path
// TestCompileReportsDiagnosticForMissingEntry exercises.
type notFoundError struct{}

func (e *notFoundError) Error() string { return "not found" }

func TestCompileSucceedsOnValidWorld(t *testing.T) {
	reader := newFakeReader()
	reader.files["world.urd.md"] = "---\nworld:\n  name: Test World\n  start: the-square\n---\n# The Square\n"

	result, err := Compile("world.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.World)
	require.Contains(t, result.World, `"start": "the-square"`)
	require.NotNil(t, result.Facts)
	require.NotNil(t, result.PropertyIndex)
}

func TestCompileFailsAndOmitsWorldOnError(t *testing.T) {
	reader := newFakeReader()
	reader.files["world.urd.md"] = "---\nworld:\n  start: nowhere\n---\n"

	result, err := Compile("world.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Empty(t, result.World)
	require.NotEmpty(t, result.Diagnostics)
}

func TestCompileReportsDiagnosticForMissingEntry(t *testing.T) {
	reader := newFakeReader()

	result, err := Compile("missing.urd.md", reader, config.Default())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, "URD214", result.Diagnostics[0].Code)
}

func TestDiagnosticsNeverRunsEmit(t *testing.T) {
	reader := newFakeReader()
	reader.files["world.urd.md"] = "---\nworld:\n  name: Test World\n  start: the-square\n---\n# The Square\n"

	result := Diagnostics("world.urd.md", reader, config.Default())
	require.Empty(t, result.Diagnostics)
	require.False(t, result.Success)
	require.Empty(t, result.World)
	require.NotNil(t, result.Graph)
	require.NotEmpty(t, result.Order)
	require.True(t, result.Symbols.Locations.Contains("the-square"))
	require.NotNil(t, result.Contexts)
}
