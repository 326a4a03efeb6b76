package record

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/normalize"
)

// Kind names a family of candidate records.
type Kind string

const (
	Microstructure Kind = "microstructure"
	Processing     Kind = "processing"
	Mechanical     Kind = "mechanical"
	Composition    Kind = "composition"
)

// Kinds returns every known kind in pipeline order.
func Kinds() []Kind {
	return []Kind{Composition, Processing, Microstructure, Mechanical}
}

// DefaultIdentity are the fields that identify a record rather than assert a
// measured value. They are never verified against evidence.
var DefaultIdentity = []string{"alloy", "variant", "material_form"}

// NumericField declares a field that must hold a number or null.
type NumericField struct {
	Name string
	// Unit is the unit token the value is reported in, if any.
	Unit string
	// Backfill allows a null value to be recovered from the record's own
	// evidence snippet.
	Backfill bool
}

// Schema is the documented shape of one record kind.
type Schema struct {
	Kind     Kind
	ListKey  string
	Identity []string
	Numeric  []NumericField
}

var schemas = map[Kind]Schema{
	Microstructure: {
		Kind:     Microstructure,
		ListKey:  "microstructures",
		Identity: DefaultIdentity,
		Numeric: []NumericField{
			{Name: "avg_grain_size_um", Unit: normalize.Micro + "m", Backfill: true},
		},
	},
	Processing: {
		Kind:     Processing,
		ListKey:  "processing_routes",
		Identity: DefaultIdentity,
		Numeric: []NumericField{
			{Name: "thickness_mm", Unit: "mm"},
		},
	},
	Mechanical: {
		Kind:     Mechanical,
		ListKey:  "records",
		Identity: DefaultIdentity,
		Numeric: []NumericField{
			{Name: "properties.avg_grain_size_um", Unit: normalize.Micro + "m"},
			{Name: "properties.TYS_MPa", Unit: "MPa"},
			{Name: "properties.CYS_MPa", Unit: "MPa"},
			{Name: "properties.SD"},
			{Name: "properties.UTS_MPa", Unit: "MPa"},
			{Name: "properties.fracture_strain_pct", Unit: "%"},
		},
	},
	Composition: {
		Kind:     Composition,
		ListKey:  "alloys",
		Identity: append([]string{"alloy_name"}, DefaultIdentity...),
	},
}

// SchemaFor returns the schema of a known kind.
func SchemaFor(k Kind) (Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}

// ParseKind maps a user-supplied name onto a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := schemas[k]
	return k, ok
}

// IdentityFields returns the identity field set for a kind, falling back to
// DefaultIdentity for unknown kinds.
func IdentityFields(k Kind) map[string]struct{} {
	ids := DefaultIdentity
	if s, ok := schemas[k]; ok && len(s.Identity) > 0 {
		ids = s.Identity
	}
	out := make(map[string]struct{}, len(ids))
	for _, f := range ids {
		out[f] = struct{}{}
	}
	return out
}

// Check enforces the upstream contract: an evidence snippet must be present
// and declared numeric fields must be numeric or null.
func (s Schema) Check(r Record) error {
	if r.Evidence == nil {
		return &InputError{Index: -1, Field: "evidence", Err: ErrMissingEvidence}
	}
	for _, nf := range s.Numeric {
		v, ok := r.Get(nf.Name)
		if !ok || v.IsNull() || v.IsNumber() {
			continue
		}
		return &InputError{Index: -1, Field: nf.Name, Err: ErrNonNumeric}
	}
	return nil
}

// Backfill sets null numeric fields that allow it from the first
// "<number> <unit>" match in the record's own evidence snippet. It is the
// only mutation a candidate record ever receives, and it only turns null
// into a value. It returns the names of the fields it filled.
func (r *Record) Backfill(s Schema) []string {
	snippet := normalize.Thousands(normalize.Units(r.Snippet()))
	if snippet == "" {
		return nil
	}
	var filled []string
	for _, nf := range s.Numeric {
		if !nf.Backfill || nf.Unit == "" {
			continue
		}
		v, ok := r.Get(nf.Name)
		if !ok || !v.IsNull() {
			continue
		}
		if nv, found := firstQuantity(snippet, nf.Unit); found && r.set(nf.Name, nv) {
			filled = append(filled, nf.Name)
		}
	}
	return filled
}

var quantityRes = map[string]*regexp.Regexp{}

func quantityRe(unit string) *regexp.Regexp {
	if re, ok := quantityRes[unit]; ok {
		return re
	}
	return regexp.MustCompile(`(?:^|[^\d.,])(\d+(?:\.\d+)?)\s*` + regexp.QuoteMeta(unit))
}

func init() {
	for _, s := range schemas {
		for _, nf := range s.Numeric {
			if nf.Unit != "" {
				quantityRes[nf.Unit] = quantityRe(nf.Unit)
			}
		}
	}
}

func firstQuantity(snippet, unit string) (Value, bool) {
	m := quantityRe(unit).FindStringSubmatch(snippet)
	if m == nil {
		return Value{}, false
	}
	tok := m[1]
	if strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, false
		}
		return FloatValue(f), true
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return Value{}, false
	}
	return IntValue(i), true
}
