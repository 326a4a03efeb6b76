// Package record models candidate records: named bags of mixed-type fields
// produced upstream, each with the verbatim evidence snippet asserted to
// support it.
package record

import (
	"bytes"
	"encoding/json"
)

// Evidence is the support attached to a candidate record.
type Evidence struct {
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Field is a named value. Nested objects are flattened to dotted names such
// as "properties.TYS_MPa".
type Field struct {
	Name  string
	Value Value
}

// Record is one candidate record. Field order follows the source payload.
type Record struct {
	Kind     Kind
	Fields   []Field
	Evidence *Evidence
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Text returns the string value of the named field, or "".
func (r Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.Text()
}

// Snippet returns the evidence snippet, or "" when there is no evidence.
func (r Record) Snippet() string {
	if r.Evidence == nil {
		return ""
	}
	return r.Evidence.Snippet
}

// set replaces the value of an existing field. It reports whether the field
// was found.
func (r *Record) set(name string, v Value) bool {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the field slice and evidence.
func (r Record) Clone() Record {
	out := Record{Kind: r.Kind, Fields: append([]Field(nil), r.Fields...)}
	if r.Evidence != nil {
		ev := *r.Evidence
		out.Evidence = &ev
	}
	return out
}

// MarshalJSON writes fields in their original order followed by evidence.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(val)
	}
	if r.Evidence != nil {
		if len(r.Fields) > 0 {
			b.WriteByte(',')
		}
		ev, err := json.Marshal(r.Evidence)
		if err != nil {
			return nil, err
		}
		b.WriteString(`"evidence":`)
		b.Write(ev)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
