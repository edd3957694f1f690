package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one key/value pair of an Ordered mapping.
type Entry[V any] struct {
	Key   string
	Value V
}

// Ordered is a JSON object that remembers the order its keys arrived in.
// Duplicate keys keep the position of their first occurrence and the value
// of their last, matching how a map-backed decoder would resolve them.
type Ordered[V any] []Entry[V]

// Get returns the value stored under key.
func (o Ordered[V]) Get(key string) (V, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// UnmarshalJSON decodes a JSON object while preserving key order.
// Numbers inside untyped values are kept as json.Number.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	out := make(Ordered[V], 0)
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		var val V
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}

		if i, seen := index[key]; seen {
			out[i].Value = val
			continue
		}
		index[key] = len(out)
		out = append(out, Entry[V]{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = out
	return nil
}

// MarshalJSON encodes the pairs as a JSON object in their stored order.
func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
