package link

import (
	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/ordmap"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

// walkState threads the contexts Collect must track while descending
// through one file's top-level content: the location a node is nested
// under (for exits/presence), and the section currently open for
// choice registration.
type walkState struct {
	path               string
	fileStem           string
	symbols            *symtab.Table
	ctx                *FileContext
	diags              *diag.Collector
	currentLocationID  string
	currentSectionID   string
	currentSequenceID  string
}

// collect runs LINK's first pass in topological order, registering
// every declaration into a fresh symbol table and each file's local
// section names into its FileContext.
func collect(g *graph.Graph, order []string, contexts map[string]*FileContext, diags *diag.Collector) *symtab.Table {
	symbols := symtab.New()

	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		ctx := contexts[path]
		stem := graph.FileStem(path)

		collectFrontmatter(node.AST, path, symbols, diags)

		if path == g.EntryPath {
			collectWorldBlock(node.AST, symbols)
		}

		st := &walkState{path: path, fileStem: stem, symbols: symbols, ctx: ctx, diags: diags}
		for _, n := range node.AST.Content {
			st.walkTopLevel(n)
		}
	}

	return symbols
}

func collectWorldBlock(file *ast.File, symbols *symtab.Table) {
	for _, entry := range file.Frontmatter.Entries {
		wb, ok := entry.Value.(*ast.WorldBlock)
		if !ok {
			continue
		}
		symbols.WorldBlockSpan = wb.Span
		for _, kv := range wb.Fields {
			switch kv.Key {
			case "name":
				symbols.WorldName = kv.Value.Str
			case "version":
				v := kv.Value
				symbols.WorldVersion = &v
			case "description":
				v := kv.Value
				symbols.WorldDescription = &v
			case "author":
				v := kv.Value
				symbols.WorldAuthor = &v
			case "seed":
				v := kv.Value
				symbols.WorldSeed = &v
			case "urd":
				v := kv.Value
				symbols.WorldRawURD = &v
			case "start":
				symbols.WorldStartRaw = kv.Value.Str
			case "entry":
				symbols.WorldEntryRaw = kv.Value.Str
			}
		}
	}
}

// pendingWorldConfig re-walks the world block to extract the raw
// start/entry values, held for Resolve since they reference symbols
// that may not exist until Collect finishes.
func pendingWorldConfig(file *ast.File) *WorldConfig {
	cfg := &WorldConfig{}
	for _, entry := range file.Frontmatter.Entries {
		wb, ok := entry.Value.(*ast.WorldBlock)
		if !ok {
			continue
		}
		for i := range wb.Fields {
			kv := wb.Fields[i]
			switch kv.Key {
			case "start":
				cfg.Start = &kv
			case "entry":
				cfg.Entry = &kv
			}
		}
	}
	return cfg
}

// collectFrontmatter registers types and entities declared in one
// file's frontmatter, first-writer-wins across the whole compilation.
func collectFrontmatter(file *ast.File, path string, symbols *symtab.Table, diags *diag.Collector) {
	for _, entry := range file.Frontmatter.Entries {
		switch entry.Key {
		case "types":
			mv, ok := entry.Value.(*ast.MapValue)
			if !ok {
				continue
			}
			for _, te := range mv.Entries {
				td, ok := te.Value.(*ast.TypeDef)
				if !ok {
					continue
				}
				registerType(td, symbols, diags)
			}
		case "entities":
			mv, ok := entry.Value.(*ast.MapValue)
			if !ok {
				continue
			}
			for _, ee := range mv.Entries {
				ed, ok := ee.Value.(*ast.EntityDecl)
				if !ok {
					continue
				}
				registerEntity(ed, symbols, diags)
			}
		}
	}
}

func registerType(td *ast.TypeDef, symbols *symtab.Table, diags *diag.Collector) {
	props := ordmapProperties(td)
	sym := &symtab.TypeSymbol{Name: td.Name, Traits: td.Traits, Properties: props, DeclaredIn: td.Span}
	if !symbols.Types.Set(td.Name, sym) {
		first, _ := symbols.Types.Get(td.Name)
		symbols.AddDuplicate("types", td.Name, first.DeclaredIn, td.Span)
		diags.Errorf("URD303", td.Span, "type '"+td.Name+"' is already declared at "+first.DeclaredIn.String())
	}
}

func registerEntity(ed *ast.EntityDecl, symbols *symtab.Table, diags *diag.Collector) {
	sym := &symtab.EntitySymbol{ID: ed.ID, TypeName: ed.TypeName, PropertyOverrides: ed.PropertyOverrides, DeclaredIn: ed.Span}
	if !symbols.Entities.Set(ed.ID, sym) {
		first, _ := symbols.Entities.Get(ed.ID)
		symbols.AddDuplicate("entities", ed.ID, first.DeclaredIn, ed.Span)
		diags.Errorf("URD302", ed.Span, "entity '@"+ed.ID+"' is already declared at "+first.DeclaredIn.String())
	}
}

func (st *walkState) walkTopLevel(n ast.ContentNode) {
	switch v := n.(type) {
	case *ast.LocationHeading:
		st.registerLocation(v)

	case *ast.SequenceHeading:
		st.registerSequence(v)

	case *ast.PhaseHeading:
		st.registerPhase(v)

	case *ast.SectionLabel:
		st.registerSection(v)

	case *ast.ExitDeclaration:
		if st.currentLocationID == "" {
			st.diags.Errorf("URD314", v.Span, "exit declaration outside of a location context")
			return
		}
		st.registerExit(v)

	case *ast.EntityPresence:
		if st.currentLocationID == "" {
			st.diags.Errorf("URD314", v.Span, "entity presence list outside of a location context")
		}

	case *ast.Jump:
		if v.IsExitQualified && st.currentLocationID == "" {
			st.diags.Errorf("URD314", v.Span, "exit-qualified jump outside of a location context")
		}

	case *ast.Choice:
		st.registerChoiceTree(v)

	case *ast.RuleBlock:
		st.registerRule(v)
	}
}

func (st *walkState) registerLocation(h *ast.LocationHeading) {
	id := slugify.Slugify(h.DisplayName)
	if id == "" {
		st.diags.Errorf("URD313", h.Span, "location heading produces an empty identifier: "+h.DisplayName)
		return
	}
	st.currentLocationID = id
	st.currentSectionID = ""
	if st.symbols.Locations.Contains(id) {
		first, _ := st.symbols.Locations.Get(id)
		st.symbols.AddDuplicate("locations", id, first.DeclaredIn, h.Span)
		st.diags.Errorf("URD304", h.Span, "location '"+id+"' is already declared at "+first.DeclaredIn.String())
		return
	}
	st.symbols.Locations.Set(id, &symtab.LocationSymbol{
		ID: id, DisplayName: h.DisplayName, Exits: ordmapExits(), DeclaredIn: h.Span,
	})
}

func (st *walkState) registerSequence(h *ast.SequenceHeading) {
	id := slugify.Slugify(h.DisplayName)
	st.currentSequenceID = id
	st.currentLocationID = ""
	st.currentSectionID = ""
	if id == "" {
		st.diags.Errorf("URD313", h.Span, "sequence heading produces an empty identifier: "+h.DisplayName)
		return
	}
	if !st.symbols.Sequences.Contains(id) {
		st.symbols.Sequences.Set(id, &symtab.SequenceSymbol{ID: id})
	}
}

func (st *walkState) registerPhase(h *ast.PhaseHeading) {
	if st.currentSequenceID == "" {
		return
	}
	seq, ok := st.symbols.Sequences.Get(st.currentSequenceID)
	if !ok {
		return
	}
	advance := "manual"
	if h.Auto {
		advance = "auto"
	}
	seq.Phases = append(seq.Phases, &symtab.PhaseSymbol{ID: slugify.Slugify(h.DisplayName), Advance: advance})
}

func (st *walkState) registerSection(s *ast.SectionLabel) {
	compiledID := st.fileStem
	if s.Name != "" {
		compiledID = st.fileStem + "/" + s.Name
	}
	st.currentSectionID = compiledID
	st.ctx.LocalSections[s.Name] = compiledID

	if st.symbols.Sections.Contains(compiledID) {
		first, _ := st.symbols.Sections.Get(compiledID)
		// Duplicates across files are allowed only when file stems
		// differ; identical stem + identical local name is a real clash.
		st.symbols.AddDuplicate("sections", compiledID, first.DeclaredIn, s.Span)
		st.diags.Errorf("URD305", s.Span, "section '"+compiledID+"' is already declared at "+first.DeclaredIn.String())
		return
	}
	st.symbols.Sections.Set(compiledID, &symtab.SectionSymbol{CompiledID: compiledID, LocalName: s.Name, DeclaredIn: s.Span})
}

func (st *walkState) registerExit(e *ast.ExitDeclaration) {
	loc, ok := st.symbols.Locations.Get(st.currentLocationID)
	if !ok {
		return
	}
	if loc.Exits.Contains(e.Direction) {
		return
	}
	var cond *ast.Condition
	for _, c := range e.Children {
		if cn, ok := c.(*ast.Condition); ok {
			cond = cn
			break
		}
	}
	loc.Exits.Set(e.Direction, &symtab.ExitSymbol{
		Direction: e.Direction, Destination: e.Destination, ConditionNode: cond, DeclaredIn: e.Span,
	})
}

// registerChoiceTree registers c and recurses into its nested content,
// assigning every leaf and nested choice its own ActionSymbol. Nested
// choices compile under their parent's id rather than the enclosing
// section directly, keeping sibling labels in distinct scopes.
func (st *walkState) registerChoiceTree(c *ast.Choice) {
	sectionID := st.currentSectionID
	if sectionID == "" {
		sectionID = st.fileStem
	}
	st.registerChoice(c, sectionID)
}

func (st *walkState) registerChoice(c *ast.Choice, scopeID string) {
	compiledID := scopeID + "/" + slugify.Slugify(c.Label)

	sec, ok := st.symbols.Sections.Get(scopeID)
	if !ok {
		sec = &symtab.SectionSymbol{CompiledID: scopeID, LocalName: "", DeclaredIn: c.Span}
		st.symbols.Sections.Set(scopeID, sec)
	}

	var dup bool
	for _, existing := range sec.Choices {
		if existing.CompiledID == compiledID {
			dup = true
			st.symbols.AddDuplicate("choices", compiledID, existing.DeclaredIn, c.Span)
			st.diags.Errorf("URD306", c.Span, "choice '"+compiledID+"' is already declared at "+existing.DeclaredIn.String())
			break
		}
	}
	if !dup {
		sec.Choices = append(sec.Choices, &symtab.ChoiceSymbol{CompiledID: compiledID, Label: c.Label, Sticky: c.Sticky, DeclaredIn: c.Span})
		st.symbols.Actions.Set(compiledID, &symtab.ActionSymbol{ID: compiledID, Target: c.Target, TargetType: c.TargetType})
	}

	for _, child := range c.Content {
		if nested, ok := child.(*ast.Choice); ok {
			st.registerChoice(nested, compiledID)
		} else {
			st.walkTopLevel(child)
		}
	}
}

func (st *walkState) registerRule(r *ast.RuleBlock) {
	if st.symbols.Rules.Contains(r.Name) {
		first, _ := st.symbols.Rules.Get(r.Name)
		st.symbols.AddDuplicate("rules", r.Name, first.DeclaredIn, r.Span)
		st.diags.Errorf("URD313", r.Span, "rule '"+r.Name+"' is already declared at "+first.DeclaredIn.String())
		return
	}
	st.symbols.Rules.Set(r.Name, &symtab.RuleSymbol{RuleID: r.Name, Actor: r.Actor, Trigger: r.Trigger, Select: r.SelectClause, DeclaredIn: r.Span})
}

func ordmapProperties(td *ast.TypeDef) *ordmap.Map[*symtab.PropertySymbol] {
	m := ordmap.New[*symtab.PropertySymbol]()
	for i := range td.Properties {
		p := td.Properties[i]
		m.Set(p.Name, &symtab.PropertySymbol{
			Name: p.Name, PropertyType: p.PropertyType, Default: p.Default, Visibility: p.Visibility,
			Values: p.Values, Min: p.Min, Max: p.Max, RefType: p.RefType,
			ElementType: p.ElementType, ElementValues: p.ElementValues, ElementRefType: p.ElementRefType,
			Description: p.Description, UnrecognizedSpelling: p.UnrecognizedSpelling, DeclaredIn: p.Span,
		})
	}
	return m
}

func ordmapExits() *ordmap.Map[*symtab.ExitSymbol] {
	return ordmap.New[*symtab.ExitSymbol]()
}
