package analyze

// PropertyDependencyIndex maps (entity_type, property) pairs to their read
// and write sites, built as a derived secondary index over a FactSet in a
// single pass.
type PropertyDependencyIndex struct {
	readers     map[PropertyKey][]int
	writers     map[PropertyKey][]int
	readKeys    []PropertyKey
	writtenKeys []PropertyKey
}

// BuildPropertyDependencyIndex constructs the index from a FactSet.
func BuildPropertyDependencyIndex(facts *FactSet) *PropertyDependencyIndex {
	idx := &PropertyDependencyIndex{
		readers: make(map[PropertyKey][]int),
		writers: make(map[PropertyKey][]int),
	}
	for i, r := range facts.Reads() {
		key := r.Key()
		if _, ok := idx.readers[key]; !ok {
			idx.readKeys = append(idx.readKeys, key)
		}
		idx.readers[key] = append(idx.readers[key], i)
	}
	for i, w := range facts.Writes() {
		key := w.Key()
		if _, ok := idx.writers[key]; !ok {
			idx.writtenKeys = append(idx.writtenKeys, key)
		}
		idx.writers[key] = append(idx.writers[key], i)
	}
	return idx
}

// ReadsOf returns all read indices for a given property key.
func (idx *PropertyDependencyIndex) ReadsOf(key PropertyKey) []int {
	return idx.readers[key]
}

// WritesOf returns all write indices for a given property key.
func (idx *PropertyDependencyIndex) WritesOf(key PropertyKey) []int {
	return idx.writers[key]
}

// ReadProperties returns every property key read anywhere, in first-seen order.
func (idx *PropertyDependencyIndex) ReadProperties() []PropertyKey {
	return idx.readKeys
}

// WrittenProperties returns every property key written anywhere, in first-seen order.
func (idx *PropertyDependencyIndex) WrittenProperties() []PropertyKey {
	return idx.writtenKeys
}
