package parse

import (
	"strconv"
	"strings"

	"urd/internal/ast"
)

// parseContent parses narrative content lines in [start, end), returning
// child nodes at or above minIndent. minIndent > 0 means this is a
// nested call (choice body, etc): a line dedenting below minIndent ends
// the block without being consumed.
func (p *parser) parseContent(start, end, minIndent int) []ast.ContentNode {
	p.end = end
	p.curLine = start

	var nodes []ast.ContentNode
	for p.curLine < p.end {
		raw := p.lines[p.curLine].raw
		if strings.TrimSpace(raw) == "" {
			p.curLine++
			continue
		}

		processed := p.checkTabs(p.curLine)
		indentLevel, _ := measureIndent(processed)

		if minIndent > 0 && indentLevel < minIndent {
			break
		}

		if node := p.parseBlock(processed, indentLevel); node != nil {
			nodes = append(nodes, node)
		} else {
			p.curLine++
		}
	}
	return nodes
}

// parseBlock dispatches a single non-blank line to the matching content
// rule, in the order given by the grammar.
func (p *parser) parseBlock(processed string, indentLevel int) ast.ContentNode {
	_, rest := measureIndent(processed)
	lineIdx := p.curLine

	switch {
	case strings.HasPrefix(rest, "? any:"):
		return p.parseOrConditionBlock(indentLevel)

	case strings.HasPrefix(rest, "rule ") && strings.HasSuffix(rest, ":"):
		return p.parseRuleBlock()

	case strings.HasPrefix(rest, "### "):
		return p.parsePhaseHeading()
	case strings.HasPrefix(rest, "## "):
		return p.parseSequenceHeading()
	case strings.HasPrefix(rest, "# "):
		return p.parseLocationHeading()

	case strings.HasPrefix(rest, "== "):
		return p.parseSectionLabel()

	case strings.HasPrefix(rest, "@") && !strings.HasPrefix(rest, "[@"):
		return p.parseEntityLine()

	case strings.HasPrefix(rest, "-> "):
		return p.parseArrowLine(indentLevel)

	case strings.HasPrefix(rest, "? "):
		return p.parseConditionLine(indentLevel)

	case strings.HasPrefix(rest, "> "):
		return p.parseEffectLine(indentLevel)

	case strings.HasPrefix(rest, "* ") || strings.HasPrefix(rest, "+ "):
		afterSigil := rest[2:]
		var labelCheck string
		if arrowPos := strings.Index(afterSigil, " -> "); arrowPos >= 0 {
			labelCheck = strings.TrimSpace(stripInlineComment(afterSigil[:arrowPos]))
		} else {
			labelCheck = strings.TrimSpace(stripInlineComment(afterSigil))
		}
		if labelCheck == "" {
			return p.makeErrorNode(lineIdx, "")
		}
		return p.parseChoiceLine(indentLevel)

	case strings.HasPrefix(rest, "! "):
		return p.parseBlockedMessage(indentLevel)

	case strings.HasPrefix(rest, "[@"):
		return p.parseEntityPresence()

	case strings.HasPrefix(rest, "// ") || rest == "//":
		return p.parseLineComment()

	default:
		if node := p.checkGrammarRejections(rest, lineIdx); node != nil {
			return node
		}
		return p.parseProse()
	}
}

func (p *parser) checkGrammarRejections(rest string, lineIdx int) ast.ContentNode {
	headingSigil := strings.HasPrefix(rest, "#") && !strings.HasPrefix(rest, "# ") && !strings.HasPrefix(rest, "## ") && !strings.HasPrefix(rest, "### ")
	conditionSigil := strings.HasPrefix(rest, "?") && !strings.HasPrefix(rest, "? ") && !strings.HasPrefix(rest, "? any:")
	if headingSigil || conditionSigil {
		return p.makeErrorNode(lineIdx, "")
	}
	return nil
}

func (p *parser) makeErrorNode(lineIdx int, attemptedRule string) ast.ContentNode {
	raw := p.lines[lineIdx].raw
	lineNo := p.lines[lineIdx].lineNo
	sp := p.lineSpan(lineIdx)
	p.diags.Errorf("URD112", sp, "unrecognised syntax at line "+strconv.Itoa(lineNo)+": '"+truncateForDisplay(strings.TrimSpace(raw))+"'")
	p.curLine++
	return &ast.ErrorNode{RawText: raw, AttemptedRule: attemptedRule, Span: sp}
}

func (p *parser) parseLocationHeading() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++
	return &ast.LocationHeading{DisplayName: strings.TrimSpace(stripInlineComment(rest[2:])), Span: sp}
}

func (p *parser) parseSequenceHeading() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++
	return &ast.SequenceHeading{DisplayName: strings.TrimSpace(stripInlineComment(rest[3:])), Span: sp}
}

func (p *parser) parsePhaseHeading() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	content := strings.TrimSpace(stripInlineComment(rest[4:]))
	sp := p.lineSpan(idx)
	p.curLine++

	auto := false
	if strings.HasSuffix(content, "(auto)") {
		content = strings.TrimSpace(content[:len(content)-6])
		auto = true
	}
	return &ast.PhaseHeading{DisplayName: content, Auto: auto, Span: sp}
}

func (p *parser) parseSectionLabel() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++
	return &ast.SectionLabel{Name: strings.TrimSpace(rest[3:]), Span: sp}
}

func (p *parser) parseEntityLine() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	afterAt := rest[1:]

	idEnd := 0
	for idEnd < len(afterAt) && (isAlnumOrUnderscore(afterAt[idEnd])) {
		idEnd++
	}
	if idEnd == 0 {
		return p.makeErrorNode(idx, "")
	}
	entityRef := afterAt[:idEnd]
	if entityRef[0] >= 'A' && entityRef[0] <= 'Z' {
		return p.makeErrorNode(idx, "")
	}
	remaining := afterAt[idEnd:]
	sp := p.lineSpan(idx)

	switch {
	case strings.HasPrefix(remaining, ": ") || remaining == ":":
		text := ""
		if len(remaining) > 2 {
			text = strings.TrimSpace(stripInlineComment(remaining[2:]))
		}
		p.curLine++
		return &ast.EntitySpeech{EntityRef: entityRef, Text: text, Span: sp}

	case strings.HasPrefix(remaining, " "):
		p.curLine++
		return &ast.StageDirection{EntityRef: entityRef, Text: strings.TrimSpace(stripInlineComment(remaining[1:])), Span: sp}

	case remaining == "":
		p.curLine++
		return &ast.StageDirection{EntityRef: entityRef, Text: "", Span: sp}

	default:
		return p.makeErrorNode(idx, "")
	}
}

func (p *parser) parseArrowLine(indentLevel int) ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	afterArrow := rest[3:]
	sp := p.lineSpan(idx)

	if colonPos := strings.Index(afterArrow, ": "); colonPos >= 0 {
		beforeColon := afterArrow[:colonPos]
		if beforeColon != "exit" && !strings.Contains(beforeColon, ":") {
			direction := strings.TrimSpace(beforeColon)
			destination := strings.TrimSpace(afterArrow[colonPos+2:])
			p.curLine++
			children := p.parseExitChildren(indentLevel)
			return &ast.ExitDeclaration{Direction: direction, Destination: destination, Children: children, Span: sp}
		}
	}

	if strings.HasPrefix(afterArrow, "exit:") {
		target := strings.TrimSpace(afterArrow[5:])
		p.curLine++
		return &ast.Jump{Target: target, IsExitQualified: true, IndentLevel: indentLevel, Span: sp}
	}

	target := strings.TrimSpace(afterArrow)
	p.curLine++
	return &ast.Jump{Target: target, IsExitQualified: false, IndentLevel: indentLevel, Span: sp}
}

// parseExitChildren collects Condition and BlockedMessage children of an
// ExitDeclaration, stopping at the first line that is neither.
func (p *parser) parseExitChildren(exitIndent int) []ast.ContentNode {
	var children []ast.ContentNode
	for p.curLine < p.end {
		raw := p.lines[p.curLine].raw
		if strings.TrimSpace(raw) == "" {
			p.curLine++
			continue
		}
		processed := p.checkTabs(p.curLine)
		indentLevel, rest := measureIndent(processed)
		if indentLevel <= exitIndent {
			break
		}
		switch {
		case strings.HasPrefix(rest, "? "):
			children = append(children, p.parseConditionLine(indentLevel))
		case strings.HasPrefix(rest, "! "):
			children = append(children, p.parseBlockedMessage(indentLevel))
		default:
			return children
		}
	}
	return children
}

func (p *parser) parseConditionLine(indentLevel int) ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	afterSigil := rest[2:]
	sp := p.lineSpan(idx)
	p.curLine++

	if expr := parseConditionExpr(afterSigil, sp); expr != nil {
		return &ast.Condition{Expr: expr, IndentLevel: indentLevel, Span: sp}
	}
	lineNo := p.lines[idx].lineNo
	p.diags.Errorf("URD112", sp, "unrecognised condition syntax at line "+strconv.Itoa(lineNo)+": '"+truncateForDisplay(strings.TrimSpace(p.lines[idx].raw))+"'")
	return &ast.ErrorNode{RawText: p.lines[idx].raw, AttemptedRule: "ConditionExpr", Span: sp}
}

func (p *parser) parseOrConditionBlock(indentLevel int) ast.ContentNode {
	startIdx := p.curLine
	p.curLine++ // skip "? any:"

	var conditions []ast.ConditionExpr
	for p.curLine < p.end {
		raw := p.lines[p.curLine].raw
		if strings.TrimSpace(raw) == "" {
			break
		}
		processed := p.checkTabs(p.curLine)
		lineIndent, rest := measureIndent(processed)
		if lineIndent <= indentLevel {
			break
		}
		lineSp := p.lineSpan(p.curLine)
		if expr := parseConditionExpr(rest, lineSp); expr != nil {
			conditions = append(conditions, expr)
		}
		p.curLine++
	}

	sp := p.lineSpan(startIdx)
	if p.curLine > startIdx+1 {
		sp = p.spanLines(startIdx, p.curLine-1)
	}
	return &ast.OrConditionBlock{Conditions: conditions, IndentLevel: indentLevel, Span: sp}
}

func (p *parser) parseEffectLine(indentLevel int) ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	afterSigil := rest[2:]
	sp := p.lineSpan(idx)
	p.curLine++

	return &ast.Effect{EffectType: parseEffectType(afterSigil), IndentLevel: indentLevel, Span: sp}
}

func (p *parser) parseChoiceLine(indentLevel int) ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)

	sticky := strings.HasPrefix(rest, "+")
	afterSigil := rest[2:]

	var label, target, targetType string
	if arrowPos := strings.Index(afterSigil, " -> "); arrowPos >= 0 {
		label = strings.TrimSpace(stripInlineComment(afterSigil[:arrowPos]))
		targetText := strings.TrimSpace(afterSigil[arrowPos+4:])
		switch {
		case strings.HasPrefix(targetText, "@"):
			target = targetText[1:]
		case strings.HasPrefix(targetText, "any "):
			targetType = strings.TrimSpace(targetText[4:])
		default:
			target = targetText
		}
	} else {
		label = strings.TrimSpace(stripInlineComment(afterSigil))
	}

	sp := p.lineSpan(idx)
	p.curLine++

	content := p.parseContent(p.curLine, p.end, indentLevel+1)

	return &ast.Choice{
		Sticky: sticky, Label: label, Target: target, TargetType: targetType,
		Content: content, IndentLevel: indentLevel, Span: sp,
	}
}

func (p *parser) parseBlockedMessage(indentLevel int) ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	text := strings.TrimSpace(stripInlineComment(rest[2:]))
	sp := p.lineSpan(idx)
	p.curLine++
	return &ast.BlockedMessage{Text: text, IndentLevel: indentLevel, Span: sp}
}

func (p *parser) parseEntityPresence() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++

	inner := rest
	if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
		inner = rest[1 : len(rest)-1]
	}
	var refs []ast.EntityPresenceRef
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "@")
		if part != "" {
			refs = append(refs, ast.EntityPresenceRef{Ref: part, Span: sp})
		}
	}
	return &ast.EntityPresence{Refs: refs, Span: sp}
}

func (p *parser) parseLineComment() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++
	text := ""
	if len(rest) > 2 {
		text = rest[2:]
	}
	return &ast.Comment{Text: text, Span: sp}
}

func (p *parser) parseProse() ast.ContentNode {
	idx := p.curLine
	processed := p.checkTabs(idx)
	_, rest := measureIndent(processed)
	sp := p.lineSpan(idx)
	p.curLine++
	return &ast.Prose{Text: strings.TrimSpace(stripInlineComment(rest)), Span: sp}
}

func (p *parser) parseRuleBlock() ast.ContentNode {
	startIdx := p.curLine
	processed := p.checkTabs(startIdx)
	ruleIndent, rest := measureIndent(processed)
	name := strings.TrimSpace(rest[5 : len(rest)-1])
	p.curLine++

	var actor, trigger string
	var selectClause *ast.Select
	var whereClauses []ast.ConditionExpr
	var effects []*ast.Effect

	for p.curLine < p.end {
		raw := p.lines[p.curLine].raw
		if strings.TrimSpace(raw) == "" {
			break
		}
		bodyProcessed := p.checkTabs(p.curLine)
		bodyIndent, bodyRest := measureIndent(bodyProcessed)
		if bodyIndent <= ruleIndent {
			break
		}
		bodySpan := p.lineSpan(p.curLine)

		switch {
		case strings.HasPrefix(bodyRest, "actor:"):
			after := strings.TrimSpace(strings.TrimPrefix(bodyRest, "actor:"))
			if strings.HasPrefix(after, "@") {
				afterAt := after[1:]
				parts := strings.SplitN(afterAt, " ", 2)
				actor = parts[0]
				if len(parts) > 1 {
					trigger = strings.TrimSpace(parts[1])
				}
			}
			p.curLine++

		case strings.HasPrefix(bodyRest, "selects "):
			if fromPos := strings.Index(bodyRest, " from "); fromPos >= 0 {
				variable := strings.TrimSpace(bodyRest[8:fromPos])
				fromText := bodyRest[fromPos+6:]
				entityRefs := parseEntityRefList(fromText)

				p.curLine++
				var selectWhere []ast.ConditionExpr
				for p.curLine < p.end {
					wraw := p.lines[p.curLine].raw
					if strings.TrimSpace(wraw) == "" {
						break
					}
					wProcessed := p.checkTabs(p.curLine)
					wIndent, wRest := measureIndent(wProcessed)
					if wIndent <= ruleIndent {
						break
					}
					if strings.HasPrefix(wRest, "where ") {
						wSpan := p.lineSpan(p.curLine)
						if expr := parseConditionExpr(wRest[6:], wSpan); expr != nil {
							selectWhere = append(selectWhere, expr)
						}
						p.curLine++
					} else {
						break
					}
				}
				selectClause = &ast.Select{From: entityRefs, Variable: variable, WhereClauses: selectWhere}
				continue
			}
			p.curLine++

		case strings.HasPrefix(bodyRest, "where "):
			if expr := parseConditionExpr(bodyRest[6:], bodySpan); expr != nil {
				whereClauses = append(whereClauses, expr)
			}
			p.curLine++

		case strings.HasPrefix(bodyRest, "> "):
			effects = append(effects, &ast.Effect{EffectType: parseEffectType(bodyRest[2:]), IndentLevel: bodyIndent, Span: bodySpan})
			p.curLine++

		default:
			p.curLine++
		}
	}

	sp := p.lineSpan(startIdx)
	lastIdx := p.curLine - 1
	if lastIdx > startIdx {
		sp = p.spanLines(startIdx, lastIdx)
	}

	return &ast.RuleBlock{
		Name: name, Actor: actor, Trigger: trigger,
		SelectClause: selectClause, WhereClauses: whereClauses, Effects: effects, Span: sp,
	}
}

func parseEntityRefList(text string) []string {
	text = strings.TrimSpace(text)
	inner := text
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		inner = text[1 : len(text)-1]
	}
	var out []string
	for _, s := range strings.Split(inner, ",") {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "@")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
