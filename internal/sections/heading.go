package sections

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Name is a canonical section label. The set is closed; see All.
type Name string

const (
	Abstract     Name = "abstract"
	Introduction Name = "introduction"
	Methods      Name = "methods"
	Results      Name = "results"
	Conclusion   Name = "conclusion"
	References   Name = "references"
	// FullText is the catch-all used when no heading is recognised.
	FullText Name = "full_text"
)

// MaxHeadingLen bounds heading candidates in runes. Longer lines are body text.
const MaxHeadingLen = 60

// All returns the canonical names in document order, FullText last.
func All() []Name {
	return []Name{Abstract, Introduction, Methods, Results, Conclusion, References, FullText}
}

// aliases lists the accepted heading phrases per canonical name, already
// lower-cased and stripped of numbering.
var aliases = map[Name][]string{
	Abstract:     {"abstract", "summary"},
	Introduction: {"introduction", "background"},
	Methods: {
		"methods", "method", "methodology",
		"materials and methods", "materials and method", "material and methods",
		"experimental", "experimental procedure", "experimental procedures",
		"experimental setup", "experimental details", "experiments",
		"materials", "materials and experimental procedure",
		"materials and microstructures",
	},
	Results: {"results", "result", "results and discussion", "discussion", "findings"},
	Conclusion: {
		"conclusion", "conclusions", "concluding remarks",
		"summary and conclusions", "summary and conclusion",
	},
	References: {"references", "bibliography", "literature", "literature cited"},
}

var headingIndex = buildIndex()

func buildIndex() map[string]Name {
	idx := make(map[string]Name)
	for name, phrases := range aliases {
		for _, p := range phrases {
			idx[p] = name
		}
	}
	return idx
}

var (
	numberingRe = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s*`)
	romanRe     = regexp.MustCompile(`^[ivx]+\.\s+`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

// Detect reports whether line is a section heading and returns its canonical
// name. Matching is exact against the alias table after lower-casing and
// stripping a leading "2.1 " style number and a trailing colon; there is no
// fuzzy matching, so body sentences that mention a keyword never qualify.
func Detect(line string) (Name, bool) {
	s := strings.TrimSpace(line)
	if s == "" || utf8.RuneCountInString(s) > MaxHeadingLen {
		return "", false
	}
	s = strings.ToLower(s)
	s = numberingRe.ReplaceAllString(s, "")
	s = romanRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	s = spaceRunRe.ReplaceAllString(s, " ")
	name, ok := headingIndex[s]
	return name, ok
}
