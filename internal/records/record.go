// Package records implements the record normalization core: parsing raw
// JSON/NDJSON text into ordered records, flattening nested structures into
// flat rows, and projecting records through the instrument field catalog.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an ordered mapping from string keys to JSON values. Key order
// matches the order keys appeared in the source document, which downstream
// sheet builders rely on for stable column ordering.
//
// Values are one of: nil, bool, string, json.Number, *Record, or []any
// (whose elements are again of these types).
type Record struct {
	keys []string
	vals map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{vals: make(map[string]any)}
}

// Set stores a value under key, appending the key if it is new.
func (r *Record) Set(key string, value any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the record's keys in insertion order. The returned slice
// must not be modified.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of keys in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// Object returns the nested record stored under key, or an empty record
// when the key is absent or not an object. Field projection never fails on
// missing sections; it defaults instead.
func (r *Record) Object(key string) *Record {
	if v, ok := r.vals[key]; ok {
		if obj, ok := v.(*Record); ok {
			return obj
		}
	}
	return NewRecord()
}

// List returns the sequence stored under key, or nil when the key is absent
// or not a sequence.
func (r *Record) List(key string) []any {
	if v, ok := r.vals[key]; ok {
		if list, ok := v.([]any); ok {
			return list
		}
	}
	return nil
}

// Field returns the scalar stored under key, or the empty string when the
// key is absent. This is the default-on-missing rule used by all schema
// projections.
func (r *Record) Field(key string) any {
	if v, ok := r.vals[key]; ok {
		return v
	}
	return ""
}

// StringField returns the value under key rendered as a string, or the
// empty string when absent.
func (r *Record) StringField(key string) string {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("records: expected JSON object, got %v", tok)
	}

	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(r.vals[key])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeValue decodes the next JSON value from dec. Objects become *Record,
// arrays become []any, numbers stay json.Number.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("records: unexpected delimiter %q", t)
		}
	default:
		// string, json.Number, bool, or nil
		return tok, nil
	}
}

// decodeObject decodes object members up to and including the closing brace.
// The opening brace has already been consumed.
func decodeObject(dec *json.Decoder) (*Record, error) {
	obj := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("records: expected object key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeArray decodes array elements up to and including the closing bracket.
func decodeArray(dec *json.Decoder) ([]any, error) {
	list := make([]any, 0)
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

// Stringify renders a decoded JSON value as a display string. Nested
// containers are rendered as compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}
