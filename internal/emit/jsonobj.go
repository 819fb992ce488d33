package emit

import (
	"bytes"
	"encoding/json"
)

// object is a small insertion-ordered JSON object builder. EMIT builds
// every nested object through one of these instead of a plain Go map, so
// that a fixed or discovered key order is preserved byte-for-byte in the
// marshaled output — the same guarantee ordmap.Map gives the symbol
// table, extended here to the output side of the pipeline.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

// set marshals v and inserts it under key, appending key to the order on
// first use. EMIT only ever marshals its own well-formed values, so a
// marshal error here indicates a programming error, not bad input.
func (o *object) set(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic("emit: " + key + ": " + err.Error())
	}
	o.setRaw(key, b)
}

func (o *object) setRaw(key string, raw json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

func (o *object) setObject(key string, v *object) {
	o.setRaw(key, mustMarshal(v))
}

func (o *object) has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *object) len() int { return len(o.keys) }

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(o.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic("emit: " + err.Error())
	}
	return b
}
