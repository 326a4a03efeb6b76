// Package verify checks each field of a candidate record against the record's
// own evidence snippet and grades the record by the share of fields the
// snippet actually supports.
package verify

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/normalize"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

// Status is the outcome of checking one field.
type Status string

const (
	Verified   Status = "verified"
	Unverified Status = "unverified"
	Missing    Status = "missing"
	// Semantic marks categorical fields that cannot be checked by substring
	// presence. They do not count toward the ratio.
	Semantic Status = "semantic"
)

// Confidence grades a record.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Grade thresholds on the verified ratio.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// DefaultUnits are the unit tokens a number must be followed by to count as
// reported in the snippet.
var DefaultUnits = []string{normalize.Micro + "m", "MPa", "%"}

// Result is the validation outcome for one record.
type Result struct {
	Checks        map[string]Status `json:"checks"`
	Confidence    Confidence        `json:"confidence"`
	VerifiedRatio float64           `json:"verified_ratio"`
}

// Verifier grades candidate records. Build one with New; the zero value
// uses DefaultUnits without uncertainty qualifiers.
type Verifier struct {
	Units []string
	// AllowUncertainty accepts a "± x" or "+/- x" qualifier between the
	// number and its unit.
	AllowUncertainty bool

	once     sync.Once
	quantity *regexp.Regexp
}

// New returns a Verifier for the given units, or DefaultUnits when none are
// given. Uncertainty qualifiers are allowed.
func New(units ...string) *Verifier {
	return NewWith(units, true)
}

// NewWith returns a Verifier with an explicit uncertainty setting.
func NewWith(units []string, allowUncertainty bool) *Verifier {
	if len(units) == 0 {
		units = DefaultUnits
	}
	v := &Verifier{Units: append([]string(nil), units...), AllowUncertainty: allowUncertainty}
	v.quantity = compileQuantity(v.Units, v.AllowUncertainty)
	return v
}

func compileQuantity(units []string, uncertainty bool) *regexp.Regexp {
	alts := make([]string, 0, len(units))
	for _, u := range units {
		if u = normalize.Units(strings.TrimSpace(u)); u != "" {
			alts = append(alts, regexp.QuoteMeta(u))
		}
	}
	// The leading group keeps "115" from matching as "15" and "1,5" from
	// matching as "5".
	pat := `(?:^|[^\d.,])([-+]?\d+(?:\.\d+)?)`
	if uncertainty {
		pat += `(?:\s*(?:±|\+/-|\+-)\s*\d+(?:\.\d+)?)?`
	}
	pat += `\s*(?:` + strings.Join(alts, "|") + `)`
	return regexp.MustCompile(pat)
}

func (v *Verifier) pattern() *regexp.Regexp {
	v.once.Do(func() {
		if v.quantity != nil {
			return
		}
		units := v.Units
		if len(units) == 0 {
			units = DefaultUnits
		}
		v.quantity = compileQuantity(units, v.AllowUncertainty)
	})
	return v.quantity
}

// Verify classifies every non-identity field of r and grades the record. A
// record without evidence violates the upstream contract and yields an
// *record.InputError.
func (v *Verifier) Verify(r record.Record) (Result, error) {
	if r.Evidence == nil {
		return Result{}, &record.InputError{Index: -1, Field: "evidence", Err: record.ErrMissingEvidence}
	}
	reported := v.reportedNumbers(r.Evidence.Snippet)
	identity := record.IdentityFields(r.Kind)

	res := Result{Checks: make(map[string]Status, len(r.Fields))}
	counted, verified := 0, 0
	for _, f := range r.Fields {
		if _, skip := identity[f.Name]; skip {
			continue
		}
		var st Status
		switch f.Value.Type() {
		case record.Null:
			st = Missing
		case record.Bool, record.String:
			st = Semantic
		case record.Int, record.Float:
			n, _ := f.Value.Number()
			st = Unverified
			if _, ok := reported[canonical(n)]; ok {
				st = Verified
			}
		default:
			continue
		}
		res.Checks[f.Name] = st
		if st == Semantic {
			continue
		}
		counted++
		if st == Verified {
			verified++
		}
	}

	res.Confidence = Low
	if counted > 0 {
		ratio := float64(verified) / float64(counted)
		res.VerifiedRatio = math.Round(ratio*100) / 100
		res.Confidence = Grade(ratio)
	}
	return res, nil
}

// Grade maps a verified ratio onto a confidence level.
func Grade(ratio float64) Confidence {
	switch {
	case ratio >= HighThreshold:
		return High
	case ratio >= MediumThreshold:
		return Medium
	}
	return Low
}

// reportedNumbers returns the canonical form of every number followed by a
// unit in the unit-normalized snippet.
func (v *Verifier) reportedNumbers(snippet string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, m := range v.pattern().FindAllStringSubmatch(normalize.Thousands(normalize.Units(snippet)), -1) {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out[canonical(f)] = struct{}{}
	}
	return out
}

// canonical renders whole numbers without a fractional part and everything
// else in its shortest decimal form, so 15, 15.0 and "15.00" agree.
func canonical(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Downgrade lowers a confidence by one step. Low stays low.
func Downgrade(c Confidence) Confidence {
	switch c {
	case High:
		return Medium
	case Medium:
		return Low
	}
	return Low
}
