package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"urd/internal/ordmap"
)

// SnapshotError is returned by ParseSnapshot for a structurally invalid or
// version-mismatched snapshot file.
type SnapshotError struct {
	Reason string
}

func (e *SnapshotError) Error() string { return e.Reason }

func errUnsupportedVersion(got string) error {
	return &SnapshotError{Reason: fmt.Sprintf("unsupported snapshot version %q, expected %q", got, SnapshotVersion)}
}

func errParse(reason string) error {
	return &SnapshotError{Reason: "snapshot parse error: " + reason}
}

// ToJSON renders the snapshot as the persisted urd_snapshot document. Every
// category is a key-ordered object matching its Snapshot map's insertion
// order, so two ToJSON calls over equal snapshots always byte-match.
func (s *Snapshot) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	fmt.Fprintf(&buf, "  %q: %q,\n", "urd_snapshot", SnapshotVersion)
	fmt.Fprintf(&buf, "  %q: %s,\n", "world_name", mustJSON(s.WorldName))

	writeCategory(&buf, "entities", s.Entities)
	writeCategory(&buf, "locations", s.Locations)
	writeCategory(&buf, "exits", s.Exits)
	writeCategory(&buf, "sections", s.Sections)
	writeCategory(&buf, "choices", s.Choices)
	writeCategory(&buf, "rules", s.Rules)
	writeCategory(&buf, "properties", s.Properties)

	fmt.Fprintf(&buf, "  %q: %s\n", "diagnostic_keys", mustJSON(s.DiagnosticKeys))
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func writeCategory[V any](buf *bytes.Buffer, name string, m *ordmap.Map[V]) {
	fmt.Fprintf(buf, "  %q: {", name)
	for i, key := range m.Keys() {
		if i > 0 {
			buf.WriteString(",")
		}
		v, _ := m.Get(key)
		fmt.Fprintf(buf, "%q:%s", key, mustJSON(v))
	}
	buf.WriteString("},\n")
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// rawSnapshot mirrors the on-disk shape for decoding. Each category
// decodes into a plain Go map, so the JSON objects' key order is lost;
// ParseSnapshot inserts each category's keys in sorted order instead.
type rawSnapshot struct {
	Version        string                     `json:"urd_snapshot"`
	WorldName      string                     `json:"world_name"`
	Entities       map[string]EntitySnapshot  `json:"entities"`
	Locations      map[string]LocationSnapshot `json:"locations"`
	Exits          map[string]ExitSnapshot    `json:"exits"`
	Sections       map[string]SectionSnapshot `json:"sections"`
	Choices        map[string]ChoiceSnapshot  `json:"choices"`
	Rules          map[string]RuleSnapshot    `json:"rules"`
	Properties     map[string]PropertySnapshot `json:"properties"`
	DiagnosticKeys []DiagnosticKey            `json:"diagnostic_keys"`
}

// ParseSnapshot loads a snapshot previously written by ToJSON. Category key
// order is not preserved across a round trip through plain JSON object
// decoding (Go's decoder loses it), which is harmless here: Diff never
// relies on a loaded snapshot's map iteration order, only on set
// membership and per-key comparison.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errParse(err.Error())
	}
	if raw.Version != SnapshotVersion {
		return nil, errUnsupportedVersion(raw.Version)
	}

	snap := newSnapshot()
	snap.WorldName = raw.WorldName
	setSorted(snap.Entities, raw.Entities)
	setSorted(snap.Locations, raw.Locations)
	setSorted(snap.Exits, raw.Exits)
	setSorted(snap.Sections, raw.Sections)
	setSorted(snap.Choices, raw.Choices)
	setSorted(snap.Rules, raw.Rules)
	setSorted(snap.Properties, raw.Properties)
	snap.DiagnosticKeys = append([]DiagnosticKey(nil), raw.DiagnosticKeys...)
	return snap, nil
}

// setSorted inserts a decoded map's entries in lexicographic key order, so
// a round trip through JSON (whose decoder does not preserve object key
// order) still produces a deterministic insertion order on the far side.
func setSorted[V any](m *ordmap.Map[V], decoded map[string]V) {
	keys := make([]string, 0, len(decoded))
	for k := range decoded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, decoded[k])
	}
}
