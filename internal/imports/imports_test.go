package imports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/config"
	"urd/internal/diag"
)

// fakeReader is an in-memory Reader keyed by normalized path, standing
// in for the project's real file system in tests.
type fakeReader struct {
	files    map[string]string
	notFound map[string]bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{files: make(map[string]string), notFound: make(map[string]bool)}
}

func (r *fakeReader) ReadFile(fsPath string) (string, error) {
	if r.notFound[fsPath] {
		return "", &ReadError{Kind: NotFound}
	}
	src, ok := r.files[fsPath]
	if !ok {
		return "", &ReadError{Kind: NotFound}
	}
	return src, nil
}

func (r *fakeReader) CanonicalFilename(dir, wrong string) (string, bool) {
	return "", false
}

func TestSimpleImportChain(t *testing.T) {
	reader := newFakeReader()
	reader.files["rooms/tavern.urd.md"] = "---\n---\n# The Tavern\n"
	diags := diag.NewCollector()

	res := Run("world.urd.md", "---\nimport: ./rooms/tavern.urd.md\n---\n# World\n", reader, diags, config.Default())

	require.Empty(t, diags.All())
	require.Len(t, res.Graph.Nodes, 2)
	require.Equal(t, []string{"rooms/tavern.urd.md", "world.urd.md"}, res.Order)
}

func TestSelfImportIsRejected(t *testing.T) {
	reader := newFakeReader()
	diags := diag.NewCollector()

	Run("world.urd.md", "---\nimport: ./world.urd.md\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD207")
}

func TestImportCycleIsDetected(t *testing.T) {
	reader := newFakeReader()
	reader.files["b.urd.md"] = "---\nimport: ./a.urd.md\n---\n"
	diags := diag.NewCollector()

	Run("a.urd.md", "---\nimport: ./b.urd.md\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD202")
}

func TestNotFoundImport(t *testing.T) {
	reader := newFakeReader()
	diags := diag.NewCollector()

	Run("world.urd.md", "---\nimport: ./missing.urd.md\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD201")
}

func TestAbsoluteImportPathRejected(t *testing.T) {
	reader := newFakeReader()
	diags := diag.NewCollector()

	Run("world.urd.md", "---\nimport: /etc/passwd.urd.md\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD209")
}

func TestImportEscapingRootRejected(t *testing.T) {
	reader := newFakeReader()
	diags := diag.NewCollector()

	Run("world.urd.md", "---\nimport: ../../outside.urd.md\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD208")
}

func TestImportWrongSuffixRejected(t *testing.T) {
	reader := newFakeReader()
	diags := diag.NewCollector()

	Run("world.urd.md", "---\nimport: ./notes.txt\n---\n", reader, diags, config.Default())

	requireCode(t, diags, "URD210")
}

func TestDuplicateImportsInSameFileProduceOneEdge(t *testing.T) {
	reader := newFakeReader()
	reader.files["rooms/tavern.urd.md"] = "---\n---\n"
	diags := diag.NewCollector()

	src := "---\nimport: ./rooms/tavern.urd.md\nimport: ./rooms/tavern.urd.md\n---\n"
	res := Run("world.urd.md", src, reader, diags, config.Default())

	require.Len(t, res.Graph.Edges, 1)
}

func TestStemCollisionWarns(t *testing.T) {
	reader := newFakeReader()
	reader.files["b/tavern.urd.md"] = "---\n---\n"
	reader.files["c/tavern.urd.md"] = "---\nimport: ../b/tavern.urd.md\n---\n"
	diags := diag.NewCollector()

	Run("c/tavern.urd.md", reader.files["c/tavern.urd.md"], reader, diags, config.Default())

	requireCode(t, diags, "URD203")
}

func requireCode(t *testing.T, diags *diag.Collector, code string) {
	t.Helper()
	for _, d := range diags.All() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected a %s diagnostic, got %+v", code, diags.All())
}
