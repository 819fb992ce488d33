package analyze

import "urd/internal/diag"

// ReportDependencyDiagnostics emits advisory URD6xx warnings over the
// PropertyDependencyIndex. Additive only — never blocks EMIT.
func ReportDependencyDiagnostics(facts *FactSet, idx *PropertyDependencyIndex, diags *diag.Collector) {
	for _, key := range idx.ReadProperties() {
		if len(idx.WritesOf(key)) > 0 {
			continue
		}
		reads := idx.ReadsOf(key)
		if len(reads) == 0 {
			continue
		}
		first := facts.Reads()[reads[0]]
		diags.Warnf("URD601", first.Span, "property '"+key.EntityType+"."+key.Property+"' is read but never written")
	}

	for _, key := range idx.WrittenProperties() {
		if len(idx.ReadsOf(key)) > 0 {
			continue
		}
		writes := idx.WritesOf(key)
		if len(writes) == 0 {
			continue
		}
		first := facts.Writes()[writes[0]]
		diags.Warnf("URD602", first.Span, "property '"+key.EntityType+"."+key.Property+"' is written but never read")
	}
}
