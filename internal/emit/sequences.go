package emit

import (
	"strings"

	"urd/internal/symtab"
)

func buildSequences(symbols *symtab.Table) *object {
	sequences := newObject()
	symbols.Sequences.Each(func(id string, ss *symtab.SequenceSymbol) {
		seqObj := newObject()

		phases := make([]*object, len(ss.Phases))
		for i, ps := range ss.Phases {
			phaseObj := newObject()
			phaseObj.set("id", ps.ID)
			if ps.Advance == "auto" {
				phaseObj.set("auto", true)
			}
			if ps.Action != "" {
				phaseObj.set("action", ps.Action)
			}
			if len(ps.Actions) > 0 {
				phaseObj.set("actions", ps.Actions)
			}
			if ps.Rule != "" {
				phaseObj.set("rule", ps.Rule)
			}
			phaseObj.set("advance", formatAdvance(ps.Advance))
			phases[i] = phaseObj
		}
		seqObj.set("phases", phases)

		sequences.setObject(id, seqObj)
	})
	return sequences
}

var advanceOperatorPairs = []string{
	" == ", "==",
	" != ", "!=",
	" <= ", "<=",
	" >= ", ">=",
	" < ", "<",
	" > ", ">",
}

// formatAdvance strips spaces around comparison operators in an
// on_condition advance string, leaving every other advance mode untouched.
func formatAdvance(advance string) string {
	const prefix = "on_condition "
	expr, ok := strings.CutPrefix(advance, prefix)
	if !ok {
		return advance
	}
	replacer := strings.NewReplacer(advanceOperatorPairs...)
	return prefix + replacer.Replace(expr)
}
