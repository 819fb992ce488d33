// Package emit implements the EMIT phase: it lowers a validated AST
// graph plus symbol table into the final deterministic JSON artifact.
package emit

import (
	"bytes"
	"encoding/json"

	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

// Run produces the pretty-printed, newline-terminated JSON artifact.
// Callers must only invoke this once every prior phase has reported
// zero Error-severity diagnostics.
func Run(g *graph.Graph, symbols *symtab.Table) (string, error) {
	order := g.TopologicalOrder()

	root := newObject()
	root.setObject("world", buildWorld(symbols))

	if symbols.Types.Len() > 0 {
		root.setObject("types", buildTypes(symbols))
	}
	if symbols.Entities.Len() > 0 {
		root.setObject("entities", buildEntities(symbols))
	}
	if symbols.Locations.Len() > 0 {
		root.setObject("locations", buildLocations(g, order, symbols))
	}
	if symbols.Rules.Len() > 0 {
		root.setObject("rules", buildRules(g, order, symbols))
	}
	if symbols.Actions.Len() > 0 {
		root.setObject("actions", buildActions(g, order, symbols))
	}
	if symbols.Sequences.Len() > 0 {
		root.setObject("sequences", buildSequences(symbols))
	}
	if symbols.Sections.Len() > 0 {
		root.setObject("dialogue", buildDialogue(g, order, symbols))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildWorld renders the world block in a fixed key order regardless of
// the author's declared frontmatter order: name, urd, version,
// description, author, start, entry, seed. The "urd" key is always the
// literal schema version "1"; any author-declared "urd" value is ignored.
func buildWorld(symbols *symtab.Table) *object {
	world := newObject()
	if symbols.WorldName != "" {
		world.set("name", slugify.Slugify(symbols.WorldName))
	}
	world.set("urd", "1")
	if symbols.WorldVersion != nil {
		world.set("version", scalarToJSON(symbols.WorldVersion))
	}
	if symbols.WorldDescription != nil {
		world.set("description", scalarToJSON(symbols.WorldDescription))
	}
	if symbols.WorldAuthor != nil {
		world.set("author", scalarToJSON(symbols.WorldAuthor))
	}
	if symbols.WorldStart != "" {
		world.set("start", symbols.WorldStart)
	}
	if symbols.WorldEntry != "" {
		world.set("entry", symbols.WorldEntry)
	}
	if symbols.WorldSeed != nil {
		world.set("seed", scalarToJSON(symbols.WorldSeed))
	}
	return world
}
