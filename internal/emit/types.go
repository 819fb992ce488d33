package emit

import (
	"urd/internal/ast"
	"urd/internal/symtab"
)

func buildTypes(symbols *symtab.Table) *object {
	types := newObject()
	symbols.Types.Each(func(name string, ts *symtab.TypeSymbol) {
		typeObj := newObject()
		if len(ts.Traits) > 0 {
			typeObj.set("traits", ts.Traits)
		}
		if ts.Properties.Len() > 0 {
			props := newObject()
			ts.Properties.Each(func(propName string, ps *symtab.PropertySymbol) {
				props.setObject(propName, buildProperty(ps))
			})
			typeObj.setObject("properties", props)
		}
		types.setObject(name, typeObj)
	})
	return types
}

func buildProperty(ps *symtab.PropertySymbol) *object {
	prop := newObject()
	prop.set("type", formatPropertyType(ps.PropertyType))
	if ps.Default != nil {
		prop.set("default", scalarToJSON(ps.Default))
	}
	if ps.Visibility == ast.Hidden {
		prop.set("visibility", "hidden")
	}
	if ps.Description != "" {
		prop.set("description", ps.Description)
	}
	if len(ps.Values) > 0 {
		prop.set("values", ps.Values)
	}
	if ps.Min != nil {
		prop.set("min", numberJSON(*ps.Min))
	}
	if ps.Max != nil {
		prop.set("max", numberJSON(*ps.Max))
	}
	if ps.RefType != "" {
		prop.set("ref_type", ps.RefType)
	}
	return prop
}
