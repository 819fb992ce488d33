package parse

import (
	"strconv"
	"strings"

	"urd/internal/ast"
)

// parseFrontmatter parses the region strictly between the opening and
// closing `---` delimiters: startIdx is the first line after the
// opener, endIdx is the line index of the closer (exclusive).
func (p *parser) parseFrontmatter(startIdx, endIdx int) *ast.Frontmatter {
	var fmSpan = p.lineSpan(max(startIdx, 0))
	if startIdx < endIdx {
		fmSpan = p.spanLines(startIdx, endIdx-1)
	}

	var entries []ast.FrontmatterEntry
	i := startIdx
	for i < endIdx {
		raw := p.lines[i].raw
		if strings.TrimSpace(raw) == "" {
			i++
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "#") {
			i++
			continue
		}

		text := p.checkTabs(i)
		indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
		if indentSpaces/2 > p.cfg.MaxFrontmatterDepth {
			p.diags.Errorf("URD104", p.lineSpan(i),
				"frontmatter nesting exceeds 8 levels at line "+strconv.Itoa(p.lines[i].lineNo))
			i++
			continue
		}

		trimmed := strings.TrimSpace(text)
		if p.checkYAMLRejections(i, trimmed) {
			i++
			continue
		}

		entry, consumed := p.parseFrontmatterEntry(i, endIdx)
		if entry == nil {
			p.diags.Errorf("URD111", p.lineSpan(i),
				"unrecognised frontmatter syntax at line "+strconv.Itoa(p.lines[i].lineNo)+": '"+truncateForDisplay(strings.TrimSpace(raw))+"'")
			i++
			continue
		}
		entries = append(entries, *entry)
		i = consumed
	}

	return &ast.Frontmatter{Entries: entries, Span: fmSpan}
}

// checkYAMLRejections emits one of URD105-109 for a recognized-but-
// unsupported YAML construct and reports whether the line was handled.
func (p *parser) checkYAMLRejections(idx int, trimmed string) bool {
	if pos := strings.IndexByte(trimmed, '&'); pos >= 0 && !strings.Contains(trimmed, "&&") {
		after := trimmed[pos+1:]
		before := trimmed[:pos]
		if after != "" && isAlnumOrUnderscore(after[0]) && (before == "" || strings.HasSuffix(before, " ") || strings.HasSuffix(before, ":")) {
			p.diags.Errorf("URD105", p.lineSpan(idx), "YAML anchors are not supported in Urd frontmatter; define each value explicitly")
			return true
		}
	}

	if strings.HasPrefix(trimmed, "*") && !strings.HasPrefix(trimmed, "* ") && !strings.HasPrefix(trimmed, "*\t") {
		after := trimmed[1:]
		if after != "" && isAlnumOrUnderscore(after[0]) {
			p.diags.Errorf("URD106", p.lineSpan(idx), "YAML aliases are not supported in Urd frontmatter; repeat the value where needed")
			return true
		}
	}

	if strings.HasPrefix(trimmed, "<<:") || trimmed == "<<" {
		p.diags.Errorf("URD107", p.lineSpan(idx), "YAML merge keys are not supported in Urd frontmatter")
		return true
	}

	if strings.Contains(trimmed, "!!") {
		p.diags.Errorf("URD108", p.lineSpan(idx), "YAML custom tags are not supported in Urd frontmatter")
		return true
	}

	if strings.HasPrefix(trimmed, "- ") || trimmed == "-" {
		p.diags.Errorf("URD109", p.lineSpan(idx), "block-style lists are not supported; use flow-style lists: [item1, item2]")
		return true
	}

	return false
}

func isAlnumOrUnderscore(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseFrontmatterEntry parses one `key: value` entry starting at idx,
// returning the entry and the index of the next unconsumed line.
func (p *parser) parseFrontmatterEntry(idx, endIdx int) (*ast.FrontmatterEntry, int) {
	text := p.checkTabs(idx)
	indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
	if indentSpaces/2 > p.cfg.MaxFrontmatterDepth {
		p.diags.Errorf("URD104", p.lineSpan(idx),
			"frontmatter nesting exceeds 8 levels at line "+strconv.Itoa(p.lines[idx].lineNo))
		return nil, idx + 1
	}
	trimmed := strings.TrimSpace(text)

	colonPos := strings.IndexByte(trimmed, ':')
	if colonPos < 0 {
		return nil, idx
	}
	key := strings.TrimSpace(trimmed[:colonPos])
	if key == "" {
		return nil, idx
	}
	afterColon := strings.TrimSpace(trimmed[colonPos+1:])
	sp := p.lineSpan(idx)

	var value ast.FrontmatterValue
	next := idx + 1

	switch {
	case key == "import":
		pathStr := strings.Trim(afterColon, `"'`)
		value = &ast.ImportDecl{Path: pathStr, Span: sp}

	case key == "world":
		fields, after := p.parseWorldFields(next, endIdx, indentSpaces+2)
		wSpan := sp
		if after > next {
			wSpan = p.spanLines(idx, after-1)
		}
		value = &ast.WorldBlock{Fields: fields, Span: wSpan}
		next = after

	case key == "types":
		children, after := p.parseTypesBlock(next, endIdx, indentSpaces+2)
		value = &ast.MapValue{Entries: children, Span: sp}
		next = after

	case key == "entities":
		children, after := p.parseEntitiesBlock(next, endIdx, indentSpaces+2)
		value = &ast.MapValue{Entries: children, Span: sp}
		next = after

	case afterColon == "":
		children, after := p.parseNestedEntries(next, endIdx, indentSpaces+2)
		value = &ast.MapValue{Entries: children, Span: sp}
		next = after

	case strings.HasPrefix(afterColon, "{"):
		kvs := p.parseInlineObject(afterColon)
		value = &ast.InlineObjectValue{Entries: kvs, Span: sp}

	case strings.HasPrefix(afterColon, "["):
		items := p.parseFlowList(afterColon)
		scalars := make([]ast.Scalar, len(items))
		for i, it := range items {
			scalars[i] = parseScalarValue(it)
		}
		value = &ast.ListValue{Values: scalars, Span: sp}

	default:
		value = &ast.ScalarValue{Value: parseScalarValue(afterColon), Span: sp}
	}

	return &ast.FrontmatterEntry{Key: key, Value: value, Span: sp}, next
}

func (p *parser) parseWorldFields(i, endIdx, childIndent int) ([]ast.KV, int) {
	var fields []ast.KV
	for i < endIdx {
		text := p.checkTabs(i)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			i++
			continue
		}
		indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
		if indentSpaces < childIndent {
			break
		}
		if colonPos := strings.IndexByte(trimmed, ':'); colonPos >= 0 {
			key := strings.TrimSpace(trimmed[:colonPos])
			val := strings.TrimSpace(trimmed[colonPos+1:])
			if key != "" {
				fields = append(fields, ast.KV{Key: key, Value: parseScalarValue(val)})
			}
		}
		i++
	}
	return fields, i
}

func (p *parser) parseTypesBlock(i, endIdx, childIndent int) ([]ast.FrontmatterEntry, int) {
	var entries []ast.FrontmatterEntry
	for i < endIdx {
		text := p.checkTabs(i)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
		if indentSpaces < childIndent {
			break
		}
		def, after := p.parseTypeDefinition(i, endIdx, indentSpaces)
		if def == nil {
			i++
			continue
		}
		entries = append(entries, ast.FrontmatterEntry{Key: def.Name, Value: def, Span: def.Span})
		i = after
	}
	return entries, i
}

func (p *parser) parseTypeDefinition(idx, endIdx, typeIndent int) (*ast.TypeDef, int) {
	text := p.checkTabs(idx)
	trimmed := strings.TrimSpace(text)
	if !strings.HasSuffix(trimmed, ":") {
		return nil, idx
	}
	withoutColon := strings.TrimSpace(trimmed[:len(trimmed)-1])

	var name string
	var traits []string
	if bStart := strings.IndexByte(withoutColon, '['); bStart >= 0 {
		bEnd := strings.IndexByte(withoutColon, ']')
		if bEnd < 0 {
			return nil, idx
		}
		name = strings.TrimSpace(withoutColon[:bStart])
		for _, t := range strings.Split(withoutColon[bStart+1:bEnd], ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				traits = append(traits, t)
			}
		}
	} else {
		name = withoutColon
	}

	if name == "" || !(name[0] >= 'A' && name[0] <= 'Z') {
		return nil, idx
	}

	startSpan := p.lineSpan(idx)
	i := idx + 1
	propIndent := typeIndent + 2
	var properties []ast.PropertyDef

	for i < endIdx {
		ptext := p.checkTabs(i)
		ptrimmed := strings.TrimSpace(ptext)
		if ptrimmed == "" {
			i++
			continue
		}
		pIndent := len(ptext) - len(strings.TrimLeft(ptext, " "))
		if pIndent < propIndent {
			break
		}
		if prop := p.parsePropertyDef(i); prop != nil {
			properties = append(properties, *prop)
		}
		i++
	}

	sp := startSpan
	if i > idx+1 {
		sp = p.spanLines(idx, i-1)
	}

	return &ast.TypeDef{Name: name, Traits: traits, Properties: properties, Span: sp}, i
}

func (p *parser) parsePropertyDef(idx int) *ast.PropertyDef {
	text := p.checkTabs(idx)
	trimmed := strings.TrimSpace(text)
	sp := p.lineSpan(idx)

	hidden := false
	rest := trimmed
	if strings.HasPrefix(rest, "~") {
		hidden = true
		rest = rest[1:]
	}

	colonPos := strings.IndexByte(rest, ':')
	if colonPos < 0 {
		return nil
	}
	name := strings.TrimSpace(rest[:colonPos])
	typeAndDefault := strings.TrimSpace(rest[colonPos+1:])

	typeStr := typeAndDefault
	var defaultScalar *ast.Scalar
	if eqPos := strings.Index(typeAndDefault, " = "); eqPos >= 0 {
		typeStr = strings.TrimSpace(typeAndDefault[:eqPos])
		d := parseScalarValue(strings.TrimSpace(typeAndDefault[eqPos+3:]))
		defaultScalar = &d
	}

	pd := parseTypeSignature(typeStr)
	pd.Name = name
	pd.Default = defaultScalar
	if hidden {
		pd.Visibility = ast.Hidden
	}
	pd.Span = sp
	return &pd
}

// parseTypeSignature parses a TypeSig string into a PropertyDef's type
// fields, normalizing the short-form aliases bool/int/num/str.
func parseTypeSignature(typeStr string) ast.PropertyDef {
	typeStr = strings.TrimSpace(typeStr)

	if strings.HasPrefix(typeStr, "enum(") && strings.HasSuffix(typeStr, ")") {
		inner := typeStr[5 : len(typeStr)-1]
		return ast.PropertyDef{PropertyType: ast.TypeEnum, Values: splitTrim(inner, ",")}
	}
	if strings.HasPrefix(typeStr, "ref(") && strings.HasSuffix(typeStr, ")") {
		inner := strings.TrimSpace(typeStr[4 : len(typeStr)-1])
		return ast.PropertyDef{PropertyType: ast.TypeRef, RefType: inner}
	}
	if strings.HasPrefix(typeStr, "list(") && strings.HasSuffix(typeStr, ")") {
		inner := strings.TrimSpace(typeStr[5 : len(typeStr)-1])
		if strings.HasPrefix(inner, "enum(") && strings.HasSuffix(inner, ")") {
			elemEnum := ast.TypeEnum
			values := splitTrim(inner[5:len(inner)-1], ",")
			return ast.PropertyDef{PropertyType: ast.TypeList, ElementType: &elemEnum, ElementValues: values}
		}
		if strings.HasPrefix(inner, "ref(") && strings.HasSuffix(inner, ")") {
			elemRef := ast.TypeRef
			refType := strings.TrimSpace(inner[4 : len(inner)-1])
			return ast.PropertyDef{PropertyType: ast.TypeList, ElementType: &elemRef, ElementRefType: refType}
		}
		elemType, _, _ := canonicalPropertyType(inner)
		return ast.PropertyDef{PropertyType: ast.TypeList, ElementType: &elemType}
	}

	var min, max *float64
	if open := strings.IndexByte(typeStr, '('); open > 0 && strings.HasSuffix(typeStr, ")") {
		if bounds := strings.Split(typeStr[open+1:len(typeStr)-1], ","); len(bounds) == 2 {
			lo, errLo := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
			hi, errHi := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
			if errLo == nil && errHi == nil {
				min, max = &lo, &hi
			}
		}
		typeStr = strings.TrimSpace(typeStr[:open])
	}
	canon, wasAlias, recognized := canonicalPropertyType(typeStr)
	pd := ast.PropertyDef{PropertyType: canon, SpellingWasAlias: wasAlias, Min: min, Max: max}
	if !recognized {
		pd.UnrecognizedSpelling = typeStr
	}
	return pd
}

// canonicalPropertyType maps a scalar type spelling to its canonical
// PropertyType, reporting whether the spelling was an alias
// (bool/int/num/str) rather than the canonical form.
func canonicalPropertyType(s string) (typ ast.PropertyType, wasAlias bool, recognized bool) {
	switch s {
	case "boolean":
		return ast.TypeBoolean, false, true
	case "bool":
		return ast.TypeBoolean, true, true
	case "integer":
		return ast.TypeInteger, false, true
	case "int":
		return ast.TypeInteger, true, true
	case "number":
		return ast.TypeNumber, false, true
	case "num":
		return ast.TypeNumber, true, true
	case "string":
		return ast.TypeString, false, true
	case "str":
		return ast.TypeString, true, true
	default:
		return ast.TypeString, false, false
	}
}

func (p *parser) parseEntitiesBlock(i, endIdx, childIndent int) ([]ast.FrontmatterEntry, int) {
	var entries []ast.FrontmatterEntry
	for i < endIdx {
		text := p.checkTabs(i)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}
		indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
		if indentSpaces < childIndent {
			break
		}
		if decl := p.parseEntityDeclaration(i); decl != nil {
			entries = append(entries, ast.FrontmatterEntry{Key: decl.ID, Value: decl, Span: decl.Span})
		}
		i++
	}
	return entries, i
}

func (p *parser) parseEntityDeclaration(idx int) *ast.EntityDecl {
	text := p.checkTabs(idx)
	trimmed := strings.TrimSpace(text)
	sp := p.lineSpan(idx)

	if !strings.HasPrefix(trimmed, "@") {
		return nil
	}
	rest := trimmed[1:]
	colonPos := strings.IndexByte(rest, ':')
	if colonPos < 0 {
		return nil
	}
	id := strings.TrimSpace(rest[:colonPos])
	afterColon := strings.TrimSpace(rest[colonPos+1:])

	var typeName string
	var overrides []ast.KV
	if braceStart := strings.IndexByte(afterColon, '{'); braceStart >= 0 {
		braceEnd := strings.LastIndexByte(afterColon, '}')
		if braceEnd < 0 {
			return nil
		}
		typeName = strings.TrimSpace(afterColon[:braceStart])
		overrides = p.parseInlineObject("{" + afterColon[braceStart+1:braceEnd] + "}")
	} else {
		typeName = afterColon
	}

	return &ast.EntityDecl{ID: id, TypeName: typeName, PropertyOverrides: overrides, Span: sp}
}

func (p *parser) parseNestedEntries(i, endIdx, childIndent int) ([]ast.FrontmatterEntry, int) {
	var entries []ast.FrontmatterEntry
	for i < endIdx {
		text := p.checkTabs(i)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			i++
			continue
		}
		indentSpaces := len(text) - len(strings.TrimLeft(text, " "))
		if indentSpaces < childIndent {
			break
		}
		entry, after := p.parseFrontmatterEntry(i, endIdx)
		if entry == nil {
			i++
			continue
		}
		entries = append(entries, *entry)
		i = after
	}
	return entries, i
}

// parseInlineObject parses `{ key: value, ... }`.
func (p *parser) parseInlineObject(s string) []ast.KV {
	inner := strings.TrimSpace(s)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")

	var result []ast.KV
	for _, pair := range splitTopLevel(inner, ',') {
		pair = strings.TrimSpace(pair)
		if colonPos := strings.IndexByte(pair, ':'); colonPos >= 0 {
			key := strings.TrimSpace(pair[:colonPos])
			val := strings.TrimSpace(pair[colonPos+1:])
			if key != "" {
				result = append(result, ast.KV{Key: key, Value: parseScalarValue(val)})
			}
		}
	}
	return result
}

// parseFlowList parses `[a, b, c]` into trimmed string items.
func (p *parser) parseFlowList(s string) []string {
	inner := strings.TrimSpace(s)
	inner = strings.TrimPrefix(inner, "[")
	inner = strings.TrimSuffix(inner, "]")

	var out []string
	for _, item := range splitTopLevel(inner, ',') {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// splitTopLevel splits s on delimiter, respecting nested brackets and
// quoted strings.
func splitTopLevel(s string, delimiter byte) []string {
	var result []string
	var current strings.Builder
	depth := 0
	inQuote := byte(0)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			current.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			inQuote = c
			current.WriteByte(c)
		case c == '(' || c == '[' || c == '{':
			depth++
			current.WriteByte(c)
		case c == ')' || c == ']' || c == '}':
			depth--
			current.WriteByte(c)
		case c == delimiter && depth == 0:
			result = append(result, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

// parseScalarValue parses a frontmatter scalar from its textual form.
func parseScalarValue(s string) ast.Scalar {
	s = strings.TrimSpace(s)

	if s == "true" {
		return ast.Scalar{Kind: ast.ScalarBoolean, Bool: true}
	}
	if s == "false" {
		return ast.Scalar{Kind: ast.ScalarBoolean, Bool: false}
	}
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		return ast.Scalar{Kind: ast.ScalarString, Str: s[1 : len(s)-1]}
	}
	if strings.HasPrefix(s, "@") {
		return ast.Scalar{Kind: ast.ScalarEntityRef, EntRef: s[1:]}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ast.Scalar{Kind: ast.ScalarInteger, Int: n}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ast.Scalar{Kind: ast.ScalarNumber, Num: f}
	}
	return ast.Scalar{Kind: ast.ScalarString, Str: s}
}
