// Package crosscheck flags physically implausible combinations between a
// microstructure record and the processing routes reported for the same
// paper.
package crosscheck

import (
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

// Issue is one flagged inconsistency. RouteIndex is the position of the
// processing route involved, or -1 when the rule looks only at the
// microstructure record.
type Issue struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	RouteIndex  int    `json:"route_index"`
}

// Rule is a single consistency check. Rules must not modify their inputs.
type Rule interface {
	Name() string
	Check(micro record.Record, routes []record.Record) []Issue
}

// Checker runs rules in declaration order.
type Checker struct {
	Rules []Rule
}

// New returns a Checker with DefaultRules.
func New() *Checker { return &Checker{Rules: DefaultRules()} }

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{ExtrudedEquiaxed{}, AnnealedNotRecrystallized{}}
}

// Check returns every issue raised by the rules. The result is empty, never
// nil, when nothing is flagged.
func (c *Checker) Check(micro record.Record, routes []record.Record) []Issue {
	issues := []Issue{}
	for _, r := range c.Rules {
		issues = append(issues, r.Check(micro, routes)...)
	}
	return issues
}

// Descriptions returns the human-readable text of each issue.
func Descriptions(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Description)
	}
	return out
}

const (
	extrudedProfile = "extruded profile"
	equiaxed        = "equiaxed"
)

// ExtrudedEquiaxed flags equi-axed grains reported for an extruded profile.
// It only looks at the microstructure record's own material form.
type ExtrudedEquiaxed struct{}

func (ExtrudedEquiaxed) Name() string { return "extruded-equiaxed" }

func (ExtrudedEquiaxed) Check(micro record.Record, _ []record.Record) []Issue {
	if form(micro) != extrudedProfile || morphology(micro.Text("grain_morphology")) != equiaxed {
		return nil
	}
	return []Issue{{
		Rule:        "extruded-equiaxed",
		Description: "Equi-axed grains uncommon for extruded material",
		RouteIndex:  -1,
	}}
}

// AnnealedNotRecrystallized flags a route in an annealed or O-temper
// condition whose matching microstructure is reported as not recrystallized.
type AnnealedNotRecrystallized struct{}

func (AnnealedNotRecrystallized) Name() string { return "annealed-not-recrystallized" }

func (AnnealedNotRecrystallized) Check(micro record.Record, routes []record.Record) []Issue {
	v, ok := micro.Get("recrystallized")
	if !ok {
		return nil
	}
	if rex, isBool := v.Bool(); !isBool || rex {
		return nil
	}
	mf := form(micro)
	if mf == "" {
		return nil
	}
	var issues []Issue
	for i, route := range routes {
		if form(route) != mf || !annealed(route.Text("condition")) {
			continue
		}
		issues = append(issues, Issue{
			Rule:        "annealed-not-recrystallized",
			Description: "Annealed " + mf + " reported as not recrystallized",
			RouteIndex:  i,
		})
	}
	return issues
}

func form(r record.Record) string {
	return strings.ToLower(strings.TrimSpace(r.Text("material_form")))
}

// morphology folds spelling variants such as "equi-axed" and "Equi axed".
func morphology(s string) string {
	return strings.NewReplacer("-", "", " ", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

func annealed(condition string) bool {
	c := strings.ToLower(strings.TrimSpace(condition))
	if c == "" {
		return false
	}
	if strings.Contains(c, "anneal") {
		return true
	}
	for _, tok := range strings.FieldsFunc(c, func(r rune) bool { return r == ' ' || r == ',' || r == '/' || r == '(' || r == ')' }) {
		if tok == "o" || tok == "o-temper" || tok == "h0" {
			return true
		}
	}
	return false
}
