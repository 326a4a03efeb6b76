// Package evaluate combines evidence validation and cross-record checks into
// the final graded output for each candidate record.
package evaluate

import (
	"fmt"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/crosscheck"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

// Evaluated is one candidate record with its validation, cross-record
// issues and final confidence.
type Evaluated struct {
	Record           record.Record      `json:"record"`
	Validation       verify.Result      `json:"validation"`
	CrossAgentIssues []string           `json:"cross_agent_issues"`
	FinalConfidence  verify.Confidence  `json:"final_confidence"`
	Issues           []crosscheck.Issue `json:"-"`
}

// Aggregate lowers c by one step when any issue was raised.
func Aggregate(c verify.Confidence, issues []crosscheck.Issue) verify.Confidence {
	if len(issues) == 0 {
		return c
	}
	return verify.Downgrade(c)
}

// Evaluate validates each microstructure record and checks it against the
// processing routes. Evaluation stops at the first upstream contract
// violation.
func Evaluate(v *verify.Verifier, c *crosscheck.Checker, micros, routes []record.Record) ([]Evaluated, error) {
	out := make([]Evaluated, 0, len(micros))
	for i, m := range micros {
		e, err := evaluateOne(v, m, c.Check(m, routes))
		if err != nil {
			return nil, fmt.Errorf("microstructure %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// EvaluateAll validates records of any kind without cross-record checks.
func EvaluateAll(v *verify.Verifier, recs []record.Record) ([]Evaluated, error) {
	out := make([]Evaluated, 0, len(recs))
	for i, r := range recs {
		e, err := evaluateOne(v, r, nil)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", r.Kind, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func evaluateOne(v *verify.Verifier, r record.Record, issues []crosscheck.Issue) (Evaluated, error) {
	res, err := v.Verify(r)
	if err != nil {
		return Evaluated{}, err
	}
	return Evaluated{
		Record:           r,
		Validation:       res,
		CrossAgentIssues: crosscheck.Descriptions(issues),
		FinalConfidence:  Aggregate(res.Confidence, issues),
		Issues:           issues,
	}, nil
}

// Counts tallies final confidence levels.
func Counts(evs []Evaluated) map[verify.Confidence]int {
	out := map[verify.Confidence]int{}
	for _, e := range evs {
		out[e.FinalConfidence]++
	}
	return out
}
