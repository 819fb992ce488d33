// Package validate implements VALIDATE: a read-only pass over the
// linked symbol table and annotated AST that checks property typing,
// condition/effect shapes, and structural rules. It runs only after
// LINK, and silently skips any node whose annotation was left empty by
// an earlier unresolved reference — the "no cascading diagnostics" rule.
package validate

import (
	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/symtab"
)

const (
	maxChoiceDepthWarn  = 3
	maxChoiceDepthError = 4
)

// Run checks everything VALIDATE is responsible for, appending findings
// to diags. It never halts on error; every check is independent.
func Run(g *graph.Graph, order []string, symbols *symtab.Table, diags *diag.Collector) {
	validateWorld(symbols, diags)
	validateTypes(symbols, diags)
	validateEntities(symbols, diags)
	validatePlayerEntity(symbols, diags)
	validateSequences(symbols, diags)
	validateActions(symbols, diags)

	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		v := &contentValidator{symbols: symbols, diags: diags}
		for _, n := range node.AST.Content {
			v.walk(n, 0)
		}
	}
}

func validateWorld(symbols *symtab.Table, diags *diag.Collector) {
	if symbols.WorldStartRaw != "" && symbols.WorldStart == "" {
		diags.Errorf("URD404", symbols.WorldBlockSpan, "world.start '"+symbols.WorldStartRaw+"' does not resolve to a known location")
	}
	if symbols.WorldEntryRaw != "" && symbols.WorldEntry == "" {
		diags.Errorf("URD405", symbols.WorldBlockSpan, "world.entry '"+symbols.WorldEntryRaw+"' does not resolve to a known sequence")
	}
	if symbols.WorldRawURD != nil && symbols.WorldRawURD.Str != "1" {
		diags.Warnf("URD411", symbols.WorldBlockSpan, "world.urd '"+symbols.WorldRawURD.Str+"' differs from \"1\"")
	}
}

func validatePlayerEntity(symbols *symtab.Table, diags *diag.Collector) {
	es, ok := symbols.Entities.Get("player")
	if !ok || !es.TypeResolved {
		return
	}
	ts, ok := symbols.Types.Get(es.TypeName)
	if !ok {
		return
	}
	if !hasTrait(ts.Traits, "mobile") || !hasTrait(ts.Traits, "container") {
		diags.Errorf("URD412", es.DeclaredIn, "entity 'player' must be both mobile and container")
	}
}

func hasTrait(traits []string, want string) bool {
	for _, t := range traits {
		if t == want {
			return true
		}
	}
	return false
}

func validateTypes(symbols *symtab.Table, diags *diag.Collector) {
	symbols.Types.Each(func(_ string, ts *symtab.TypeSymbol) {
		ts.Properties.Each(func(_ string, ps *symtab.PropertySymbol) {
			validateProperty(ts, ps, symbols, diags)
		})
	})
}

func validateProperty(ts *symtab.TypeSymbol, ps *symtab.PropertySymbol, symbols *symtab.Table, diags *diag.Collector) {
	if ps.UnrecognizedSpelling != "" {
		diags.Warnf("URD429", ps.DeclaredIn, "property '"+ts.Name+"."+ps.Name+"' declares an unrecognized type spelling")
	}

	switch ps.PropertyType {
	case ast.TypeEnum:
		if len(ps.Values) == 0 {
			diags.Errorf("URD414", ps.DeclaredIn, "property '"+ts.Name+"."+ps.Name+"' declares enum with no values")
		}
	case ast.TypeRef:
		if ps.RefType != "" && !symbols.Types.Contains(ps.RefType) {
			diags.Errorf("URD415", ps.DeclaredIn, "property '"+ts.Name+"."+ps.Name+"' references unknown type '"+ps.RefType+"'")
		}
	}

	if ps.Min != nil && ps.Max != nil && *ps.Min > *ps.Max {
		diags.Errorf("URD416", ps.DeclaredIn, "property '"+ts.Name+"."+ps.Name+"' declares min greater than max")
	}
	if (ps.Min != nil || ps.Max != nil) && ps.PropertyType != ast.TypeInteger && ps.PropertyType != ast.TypeNumber {
		diags.Errorf("URD417", ps.DeclaredIn, "property '"+ts.Name+"."+ps.Name+"' declares a range on a non-numeric type")
	}

	if ps.Default != nil {
		validateScalarAgainstType(ts.Name, ps, *ps.Default, diags)
	}
}

// validateScalarAgainstType checks a default or override scalar value
// against a property's declared type, emitting 413 for defaults
// (caller passes through the shared 401/402/418 codes otherwise).
func validateScalarAgainstType(typeName string, ps *symtab.PropertySymbol, v ast.Scalar, diags *diag.Collector) {
	mismatch := false
	switch ps.PropertyType {
	case ast.TypeBoolean:
		mismatch = v.Kind != ast.ScalarBoolean
	case ast.TypeInteger:
		mismatch = v.Kind != ast.ScalarInteger
	case ast.TypeNumber:
		mismatch = v.Kind != ast.ScalarInteger && v.Kind != ast.ScalarNumber
	case ast.TypeString:
		mismatch = v.Kind != ast.ScalarString
	case ast.TypeEnum:
		if v.Kind == ast.ScalarString && len(ps.Values) > 0 && !stringSliceContains(ps.Values, v.Str) {
			diags.Errorf("URD402", ps.DeclaredIn, "default value '"+v.Str+"' for '"+typeName+"."+ps.Name+"' is not a declared enum value")
		}
	}
	if mismatch {
		diags.Errorf("URD413", ps.DeclaredIn, "default value for '"+typeName+"."+ps.Name+"' does not match its declared type")
	}
	if ps.PropertyType == ast.TypeInteger || ps.PropertyType == ast.TypeNumber {
		n := scalarNumber(v)
		if ps.Min != nil && n < *ps.Min {
			diags.Errorf("URD418", ps.DeclaredIn, "default value for '"+typeName+"."+ps.Name+"' is below its declared minimum")
		}
		if ps.Max != nil && n > *ps.Max {
			diags.Errorf("URD418", ps.DeclaredIn, "default value for '"+typeName+"."+ps.Name+"' is above its declared maximum")
		}
	}
}

func scalarNumber(v ast.Scalar) float64 {
	if v.Kind == ast.ScalarInteger {
		return float64(v.Int)
	}
	return v.Num
}

func stringSliceContains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func validateEntities(symbols *symtab.Table, diags *diag.Collector) {
	symbols.Entities.Each(func(_ string, es *symtab.EntitySymbol) {
		if !es.TypeResolved {
			return
		}
		ts, ok := symbols.Types.Get(es.TypeName)
		if !ok {
			return
		}
		for _, ov := range es.PropertyOverrides {
			ps, ok := ts.Properties.Get(ov.Key)
			if !ok {
				continue // URD308 already reported this at LINK
			}
			validateScalarAgainstType(es.TypeName, ps, ov.Value, diags)
			if ps.PropertyType == ast.TypeRef && ov.Value.Kind == ast.ScalarEntityRef {
				target, ok := symbols.Entities.Get(ov.Value.EntRef)
				if ok && target.TypeResolved && target.TypeName != ps.RefType {
					diags.Errorf("URD419", es.DeclaredIn, "property '"+es.ID+"."+ov.Key+"' references entity '@"+ov.Value.EntRef+"' of type '"+target.TypeName+"', expected '"+ps.RefType+"'")
				}
			}
		}
	})
}

func validateSequences(symbols *symtab.Table, diags *diag.Collector) {
	symbols.Sequences.Each(func(id string, seq *symtab.SequenceSymbol) {
		if len(seq.Phases) == 0 {
			diags.Warnf("URD428", symbols.WorldBlockSpan, "sequence '"+id+"' declares no phases")
			return
		}
		for _, ph := range seq.Phases {
			validatePhase(ph, symbols, diags)
		}
	})
}

func validatePhase(ph *symtab.PhaseSymbol, symbols *symtab.Table, diags *diag.Collector) {
	if !isRecognizedAdvance(ph.Advance) {
		diags.Errorf("URD409", symbols.WorldBlockSpan, "phase '"+ph.ID+"' advance mode '"+ph.Advance+"' is not a recognized form")
	}
	if ph.Action != "" && !symbols.Actions.Contains(ph.Action) {
		diags.Errorf("URD407", symbols.WorldBlockSpan, "phase '"+ph.ID+"' references unknown action '"+ph.Action+"'")
	}
	for _, a := range ph.Actions {
		if !symbols.Actions.Contains(a) {
			diags.Errorf("URD407", symbols.WorldBlockSpan, "phase '"+ph.ID+"' references unknown action '"+a+"'")
		}
	}
	if ph.Rule != "" && !symbols.Rules.Contains(ph.Rule) {
		diags.Errorf("URD408", symbols.WorldBlockSpan, "phase '"+ph.ID+"' references unknown rule '"+ph.Rule+"'")
	}
	if ph.Advance == "auto" && (ph.Action != "" || len(ph.Actions) > 0) {
		diags.Warnf("URD427", symbols.WorldBlockSpan, "phase '"+ph.ID+"' is auto-advancing but declares player-facing actions")
	}
}

func isRecognizedAdvance(advance string) bool {
	switch advance {
	case "auto", "manual", "on_action", "end":
		return true
	}
	return len(advance) > len("on_condition ") && advance[:len("on_condition ")] == "on_condition "
}

func validateActions(symbols *symtab.Table, diags *diag.Collector) {
	symbols.Actions.Each(func(id string, a *symtab.ActionSymbol) {
		if a.Target != "" && a.TargetType != "" {
			diags.Errorf("URD406", symbols.WorldBlockSpan, "action '"+id+"' declares both a target and a target_type")
		}
	})
}
