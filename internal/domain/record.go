package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Field is a single named value from a source row.
type Field struct {
	Name  string
	Value any
}

// Payload is the ordered field set of a source row. Order is significant:
// the address is derived from fields in their original column order, and the
// serialized form must round-trip without reordering.
type Payload []Field

// Get returns the value of the first field with the given name.
func (p Payload) Get(name string) (any, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the named field rendered as text, or "" when absent or nil.
func (p Payload) String(name string) string {
	v, ok := p.Get(name)
	if !ok || v == nil {
		return ""
	}
	return renderScalar(v)
}

// MarshalJSON serializes the payload as a JSON object whose keys appear in
// field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal payload key %q: %w", f.Name, err)
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal payload value %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object token by token so that field order is
// preserved, which encoding/json's map decoding would lose.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("unmarshal payload: expected object, got %v", tok)
	}

	out := Payload{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("unmarshal payload key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unmarshal payload: non-string key %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("unmarshal payload value %q: %w", key, err)
		}
		out = append(out, Field{Name: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	*p = out
	return nil
}

// Record is one stored monitoring row. Records are immutable once inserted;
// the dataset is only ever replaced wholesale through the store's staging
// swap, never updated in place.
type Record struct {
	ID          int64       `json:"id"`
	Province    string      `json:"province,omitempty"`
	Site        string      `json:"site,omitempty"`
	Address     string      `json:"address"`
	Coord       *Coordinate `json:"coord,omitempty"` // nil: not yet geocoded, or geocoding failed
	Payload     Payload     `json:"payload,omitempty"`
	Source      string      `json:"source,omitempty"`
	ProcessedAt time.Time   `json:"processed_at,omitempty"`
}

// Eligible reports whether the record can participate in distance queries.
func (r Record) Eligible() bool {
	return r.Coord != nil
}

func renderScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// %g keeps integral values free of trailing zeros so 1.0 and 1
		// derive the same address text.
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
