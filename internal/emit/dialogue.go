package emit

import (
	"strings"

	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

type speech struct {
	speaker string
	text    string
}

type sectionData struct {
	prompt       *speech
	description  string
	conditions   any
	choices      []*choiceData
	onExhausted  *exhaustedData
}

type choiceData struct {
	label          string
	conditions     any
	response       *speech
	effects        []*object
	goto_          string
	nestedChoices  []*choiceData
}

type exhaustedData struct {
	text    string
	speaker string
	goto_   string
}

func buildDialogue(g *graph.Graph, order []string, symbols *symtab.Table) *object {
	collected := make(map[string]*sectionData)

	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		stem := graph.FileStem(path)
		var currentSectionID string
		var currentNodes []ast.ContentNode

		flush := func() {
			if currentSectionID != "" {
				collected[currentSectionID] = buildSectionData(currentNodes, symbols)
			}
		}

		for _, content := range node.AST.Content {
			switch n := content.(type) {
			case *ast.SectionLabel:
				flush()
				currentSectionID = stem + "/" + n.Name
				currentNodes = nil
			case *ast.LocationHeading:
				flush()
				currentSectionID = ""
				currentNodes = nil
			default:
				if currentSectionID != "" {
					currentNodes = append(currentNodes, content)
				}
			}
		}
		flush()
	}

	dialogue := newObject()
	symbols.Sections.Each(func(id string, ss *symtab.SectionSymbol) {
		// Nested choices are registered under a synthetic SectionSymbol
		// keyed by their parent choice's compiled id; skip those so only
		// real dialogue sections surface at the top level.
		if symbols.Actions.Contains(id) {
			return
		}
		secObj := newObject()
		secObj.set("id", id)

		if sd, ok := collected[id]; ok {
			if sd.prompt != nil {
				secObj.setObject("prompt", speechObject(sd.prompt))
			}
			if sd.description != "" {
				secObj.set("description", sd.description)
			}
			if sd.conditions != nil {
				secObj.setRaw("conditions", mustMarshal(sd.conditions))
			}
			if len(sd.choices) > 0 {
				choices := make([]*object, 0, len(sd.choices))
				for i, cd := range sd.choices {
					if i >= len(ss.Choices) {
						break
					}
					choices = append(choices, buildChoiceJSON(cd, ss.Choices[i], symbols))
				}
				secObj.set("choices", choices)
			}
			if sd.onExhausted != nil {
				exObj := newObject()
				if sd.onExhausted.speaker != "" {
					exObj.set("speaker", stripAt(sd.onExhausted.speaker))
				}
				exObj.set("text", sd.onExhausted.text)
				if sd.onExhausted.goto_ != "" {
					exObj.set("goto", sd.onExhausted.goto_)
				}
				secObj.setObject("on_exhausted", exObj)
			}
		}

		dialogue.setObject(id, secObj)
	})
	return dialogue
}

func speechObject(s *speech) *object {
	obj := newObject()
	obj.set("speaker", stripAt(s.speaker))
	obj.set("text", s.text)
	return obj
}

func buildSectionData(nodes []ast.ContentNode, symbols *symtab.Table) *sectionData {
	firstChoiceIdx, lastChoiceIdx := -1, -1
	for i, n := range nodes {
		if _, ok := n.(*ast.Choice); ok {
			if firstChoiceIdx == -1 {
				firstChoiceIdx = i
			}
			lastChoiceIdx = i
		}
	}

	regionA := nodes
	if firstChoiceIdx != -1 {
		regionA = nodes[:firstChoiceIdx]
	}
	var regionC []ast.ContentNode
	if lastChoiceIdx != -1 && lastChoiceIdx+1 < len(nodes) {
		regionC = nodes[lastChoiceIdx+1:]
	}

	var prompt *speech
	var proseBlocks []string
	var andConditions []string
	var orConditions []string
	hasOr := false

	for _, n := range regionA {
		switch v := n.(type) {
		case *ast.EntitySpeech:
			if prompt == nil {
				prompt = &speech{speaker: v.EntityRef, text: v.Text}
			} else {
				text := strings.TrimSpace(v.EntityRef + ": " + v.Text)
				proseBlocks = append(proseBlocks, text)
			}
		case *ast.Prose:
			if trimmed := strings.TrimSpace(v.Text); trimmed != "" {
				proseBlocks = append(proseBlocks, trimmed)
			}
		case *ast.StageDirection:
			text := strings.TrimSpace(v.EntityRef + " " + v.Text)
			proseBlocks = append(proseBlocks, text)
		case *ast.Condition:
			andConditions = append(andConditions, lowerCondition(v.Expr))
		case *ast.OrConditionBlock:
			hasOr = true
			orConditions = make([]string, len(v.Conditions))
			for i, c := range v.Conditions {
				orConditions[i] = lowerCondition(c)
			}
		}
	}

	var description string
	if len(proseBlocks) > 0 {
		description = strings.Join(proseBlocks, "\n\n")
	}

	conditions := buildConditionsValue(andConditions, orConditions, hasOr)

	var choices []*choiceData
	for _, n := range nodes {
		if c, ok := n.(*ast.Choice); ok {
			choices = append(choices, buildChoiceData(c, symbols))
		}
	}

	return &sectionData{
		prompt:      prompt,
		description: description,
		conditions:  conditions,
		choices:     choices,
		onExhausted: buildExhaustedData(regionC),
	}
}

func buildChoiceData(choice *ast.Choice, symbols *symtab.Table) *choiceData {
	var andConditions []string
	var orConditions []string
	hasOr := false
	var response *speech
	effects := []*object{}
	var gotoTarget string
	var nested []*choiceData

	for _, child := range choice.Content {
		switch v := child.(type) {
		case *ast.Condition:
			andConditions = append(andConditions, lowerCondition(v.Expr))
		case *ast.OrConditionBlock:
			hasOr = true
			orConditions = make([]string, len(v.Conditions))
			for i, c := range v.Conditions {
				orConditions[i] = lowerCondition(c)
			}
		case *ast.EntitySpeech:
			if response == nil {
				response = &speech{speaker: v.EntityRef, text: v.Text}
			}
		case *ast.Effect:
			effects = append(effects, lowerEffect(v.EffectType, v.Annotation, symbols))
		case *ast.Jump:
			if choice.Target == "" && choice.TargetType == "" && v.Target != "end" {
				if v.Annotation != nil && v.Annotation.HasSection() {
					gotoTarget = v.Annotation.ResolvedSection
				}
			}
		case *ast.Choice:
			nested = append(nested, buildChoiceData(v, symbols))
		}
	}

	return &choiceData{
		label:         choice.Label,
		conditions:    buildConditionsValue(andConditions, orConditions, hasOr),
		response:      response,
		effects:       effects,
		goto_:         gotoTarget,
		nestedChoices: nested,
	}
}

func buildChoiceJSON(cd *choiceData, cs *symtab.ChoiceSymbol, symbols *symtab.Table) *object {
	obj := newObject()
	obj.set("id", cs.CompiledID)
	obj.set("label", cs.Label)
	obj.set("sticky", cs.Sticky)

	if cd.conditions != nil {
		obj.setRaw("conditions", mustMarshal(cd.conditions))
	}
	if cd.response != nil {
		obj.setObject("response", speechObject(cd.response))
	}
	if len(cd.effects) > 0 {
		obj.set("effects", cd.effects)
	}
	if cd.goto_ != "" {
		obj.set("goto", cd.goto_)
	}
	if len(cd.nestedChoices) > 0 {
		nestedJSON := make([]*object, 0, len(cd.nestedChoices))
		for _, ncd := range cd.nestedChoices {
			if ncs := findNestedChoiceSymbol(cs, ncd.label, symbols); ncs != nil {
				nestedJSON = append(nestedJSON, buildChoiceJSON(ncd, ncs, symbols))
			}
		}
		if len(nestedJSON) > 0 {
			obj.set("choices", nestedJSON)
		}
	}

	return obj
}

// findNestedChoiceSymbol looks up a nested ChoiceSymbol. Nested choices
// are registered under a synthetic SectionSymbol keyed by their parent
// choice's compiled id (see registerChoice), so the parent's own
// compiled id is the scope to search, not the enclosing section.
func findNestedChoiceSymbol(parent *symtab.ChoiceSymbol, nestedLabel string, symbols *symtab.Table) *symtab.ChoiceSymbol {
	expectedID := parent.CompiledID + "/" + slugify.Slugify(nestedLabel)

	scope, ok := symbols.Sections.Get(parent.CompiledID)
	if !ok {
		return nil
	}
	for _, c := range scope.Choices {
		if c.CompiledID == expectedID {
			return c
		}
	}
	return nil
}

func buildExhaustedData(regionC []ast.ContentNode) *exhaustedData {
	if len(regionC) == 0 {
		return nil
	}

	var textParts []string
	var speaker string
	var gotoTarget string

	for _, n := range regionC {
		switch v := n.(type) {
		case *ast.EntitySpeech:
			if speaker == "" && len(textParts) == 0 {
				speaker = v.EntityRef
				textParts = append(textParts, v.Text)
			}
		case *ast.Prose:
			if trimmed := strings.TrimSpace(v.Text); trimmed != "" {
				textParts = append(textParts, trimmed)
			}
		case *ast.StageDirection:
			text := strings.TrimSpace(v.EntityRef + " " + v.Text)
			textParts = append(textParts, text)
		case *ast.Jump:
			if v.Target != "end" && v.Annotation != nil && v.Annotation.HasSection() {
				gotoTarget = v.Annotation.ResolvedSection
			}
		}
	}

	if len(textParts) == 0 {
		return nil
	}

	return &exhaustedData{
		text:    strings.Join(textParts, "\n\n"),
		speaker: speaker,
		goto_:   gotoTarget,
	}
}
