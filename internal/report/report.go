// Package report renders the outcome of one paper as Markdown, HTML or PDF.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/evaluate"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

// Summary is what a report is rendered from.
type Summary struct {
	Paper        string
	RunID        string
	Sections     sections.Map
	TableRecords int
	SkippedRows  int
	// TableError explains why no table records were produced, if any.
	TableError string
	// Evaluations are keyed by record kind.
	Evaluations map[record.Kind][]evaluate.Evaluated
	// Failures holds per-kind errors that did not stop the run.
	Failures map[record.Kind]string
}

// maxListed caps the evidence check list per kind.
const maxListed = 50

// Markdown renders the summary.
func Markdown(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Extraction report: %s\n\n", s.Paper)
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`\n\n", s.RunID)
	}

	b.WriteString("## Sections\n\n")
	names := s.Sections.Names()
	if len(names) == 0 {
		b.WriteString("No text.\n\n")
	}
	for _, n := range names {
		fmt.Fprintf(&b, "- %s (%d chars)\n", n, len([]rune(s.Sections[n])))
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Table records\n\n")
	switch {
	case s.TableError != "":
		fmt.Fprintf(&b, "No table records: %s\n\n", s.TableError)
	default:
		fmt.Fprintf(&b, "%d records, %d rows skipped.\n\n", s.TableRecords, s.SkippedRows)
	}

	b.WriteString("## Evidence check\n\n")
	kinds := make([]record.Kind, 0, len(s.Evaluations)+len(s.Failures))
	for _, k := range record.Kinds() {
		_, evaluated := s.Evaluations[k]
		_, failed := s.Failures[k]
		if evaluated || failed {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		b.WriteString("No candidate records.\n")
	}
	for _, k := range kinds {
		fmt.Fprintf(&b, "### %s\n\n", k)
		if msg, ok := s.Failures[k]; ok {
			fmt.Fprintf(&b, "Failed: %s\n\n", msg)
			continue
		}
		evs := s.Evaluations[k]
		counts := evaluate.Counts(evs)
		fmt.Fprintf(&b, "%d records: %d high, %d medium, %d low.\n\n",
			len(evs), counts[verify.High], counts[verify.Medium], counts[verify.Low])
		for i, e := range evs {
			if i >= maxListed {
				fmt.Fprintf(&b, "- ... %d more\n", len(evs)-maxListed)
				break
			}
			b.WriteString("- ")
			b.WriteString(Label(e.Record))
			fmt.Fprintf(&b, ": verified %.2f; confidence: %s; final: %s", e.Validation.VerifiedRatio, e.Validation.Confidence, e.FinalConfidence)
			if unv := fieldsWith(e.Validation, verify.Unverified); len(unv) > 0 {
				fmt.Fprintf(&b, "; unverified: %s", strings.Join(unv, ", "))
			}
			if len(e.CrossAgentIssues) > 0 {
				fmt.Fprintf(&b, "; issues: %s", strings.Join(e.CrossAgentIssues, "; "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Label names a record by its identity fields, e.g. "AZ31 / B / extruded profile".
func Label(r record.Record) string {
	var parts []string
	for _, f := range []string{"alloy_name", "alloy", "variant", "material_form"} {
		if v := strings.TrimSpace(r.Text(f)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "(unnamed " + string(r.Kind) + ")"
	}
	return strings.Join(parts, " / ")
}

func fieldsWith(res verify.Result, st verify.Status) []string {
	var out []string
	for name, s := range res.Checks {
		if s == st {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
