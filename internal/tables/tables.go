// Package tables turns raw extracted table cells into typed records.
package tables

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// ErrTableShape is returned when a table does not look like the schema
// expects. Callers should skip the table rather than guess.
var ErrTableShape = errors.New("table shape not recognized")

// ShapeError describes which table was rejected and why.
type ShapeError struct {
	Table  int
	Page   int
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("table %d (page %d): %s: %s", e.Table, e.Page, ErrTableShape, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrTableShape }

// Role says how a column is interpreted.
type Role uint8

const (
	RoleValue Role = iota
	RoleKey
	RoleSecondary
)

// Field is one column of a schema, in table order.
type Field struct {
	Name string
	Role Role
}

// Schema describes the expected layout of a table: the keywords that
// identify its header row and the fixed column order below it.
type Schema struct {
	Name           string
	HeaderKeywords []string
	Fields         []Field
}

// MechanicalSchema is the tensile/compressive property table layout:
// Alloy | Variant | Av. grain size | TYS | CYS | SD | UTS | Fracture strain.
var MechanicalSchema = Schema{
	Name:           "mechanical",
	HeaderKeywords: []string{"alloy", "variant", "tys"},
	Fields: []Field{
		{Name: "alloy", Role: RoleKey},
		{Name: "variant", Role: RoleSecondary},
		{Name: "avg_grain_size_um"},
		{Name: "TYS_MPa"},
		{Name: "CYS_MPa"},
		{Name: "SD"},
		{Name: "UTS_MPa"},
		{Name: "fracture_strain_pct"},
	},
}

func (s Schema) column(role Role) (int, string) {
	for i, f := range s.Fields {
		if f.Role == role {
			return i, f.Name
		}
	}
	return -1, ""
}

// matchesHeader reports whether row contains every header keyword,
// case-insensitively, anywhere in its joined cells.
func (s Schema) matchesHeader(row []string) bool {
	if len(s.HeaderKeywords) == 0 {
		return false
	}
	joined := strings.ToLower(strings.Join(row, " "))
	for _, kw := range s.HeaderKeywords {
		if !strings.Contains(joined, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// Record is the typed projection of one data row.
type Record struct {
	Key          *string
	SecondaryKey *string
	Values       map[string]Value

	schema *Schema
}

// Get returns the parsed value of a value column.
func (r Record) Get(field string) Value { return r.Values[field] }

// MarshalJSON writes the record as a flat object in schema column order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.schema == nil {
		return nil, errors.New("tables: record without schema")
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r.schema.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		name, _ := json.Marshal(f.Name)
		b.Write(name)
		b.WriteByte(':')
		var raw []byte
		switch f.Role {
		case RoleKey:
			raw, _ = json.Marshal(r.Key)
		case RoleSecondary:
			raw, _ = json.Marshal(r.SecondaryKey)
		default:
			raw = []byte(r.Values[f.Name].String())
		}
		b.Write(raw)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Result is the outcome of normalizing one table.
type Result struct {
	Table     int      `json:"table_index"`
	Page      int      `json:"page"`
	HeaderRow int      `json:"header_row"`
	Skipped   int      `json:"skipped_rows"`
	Records   []Record `json:"records"`
}

// Normalize locates the header row of t and emits one record per data row
// below it. The key column is carried forward from the most recent row that
// supplied one. Rows shorter than the schema are skipped, as are rows with
// neither key nor secondary key and rows that are entirely blank.
func Normalize(t paper.RawTable, s Schema) (Result, error) {
	res := Result{Table: t.Index, Page: t.Page, HeaderRow: -1}
	if len(t.Rows) == 0 {
		return res, &ShapeError{Table: t.Index, Page: t.Page, Reason: "no rows"}
	}
	keyCol, _ := s.column(RoleKey)
	secCol, _ := s.column(RoleSecondary)
	if keyCol < 0 {
		return res, fmt.Errorf("tables: schema %q has no key column", s.Name)
	}
	for i, row := range t.Rows {
		if s.matchesHeader(row) {
			res.HeaderRow = i
			break
		}
	}
	if res.HeaderRow < 0 {
		return res, &ShapeError{Table: t.Index, Page: t.Page, Reason: "header row not found"}
	}

	schema := s
	current := ""
	for _, row := range t.Rows[res.HeaderRow+1:] {
		if len(row) < len(s.Fields) {
			res.Skipped++
			continue
		}
		rawKey := strings.TrimSpace(row[keyCol])
		secondary := ""
		if secCol >= 0 {
			secondary = strings.TrimSpace(row[secCol])
		}
		if rawKey != "" {
			current = rawKey
		}
		key := current

		values := make(map[string]Value, len(s.Fields))
		anyValue := false
		for i, f := range s.Fields {
			if f.Role != RoleValue {
				continue
			}
			v := ParseValue(row[i])
			values[f.Name] = v
			if !v.IsNull() {
				anyValue = true
			}
		}
		if key == "" && secondary == "" {
			res.Skipped++
			continue
		}
		if rawKey == "" && secondary == "" && !anyValue {
			res.Skipped++
			continue
		}
		rec := Record{Values: values, schema: &schema}
		if key != "" {
			k := key
			rec.Key = &k
		}
		if secondary != "" {
			sk := secondary
			rec.SecondaryKey = &sk
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// Find returns the first table whose header matches s.
func Find(ts []paper.RawTable, s Schema) (paper.RawTable, bool) {
	for _, t := range ts {
		for _, row := range t.Rows {
			if s.matchesHeader(row) {
				return t, true
			}
		}
	}
	return paper.RawTable{}, false
}
