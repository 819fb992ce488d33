package emit

import "urd/internal/symtab"

func buildEntities(symbols *symtab.Table) *object {
	entities := newObject()
	symbols.Entities.Each(func(id string, es *symtab.EntitySymbol) {
		entityObj := newObject()
		entityObj.set("type", es.TypeName)
		if len(es.PropertyOverrides) > 0 {
			props := newObject()
			for _, kv := range es.PropertyOverrides {
				props.set(kv.Key, scalarToJSON(&kv.Value))
			}
			entityObj.setObject("properties", props)
		}
		entities.setObject(id, entityObj)
	})
	return entities
}
