// Package sections splits paper text into canonical sections.
package sections

import (
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/normalize"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// Map holds the normalized text of every detected section.
type Map map[Name]string

// Span is one heading occurrence and the half-open line range [Start, End)
// of its body. Line indices count lines of normalize.Text(text), not of the
// raw input: runs of three or more newlines are collapsed first, so indices
// drift from the raw document after such a run while keeping their order.
type Span struct {
	Name        Name `json:"name"`
	HeadingLine int  `json:"heading_line"`
	Start       int  `json:"start"`
	End         int  `json:"end"`
}

// Spans returns every heading occurrence in order of appearance. A span ends
// where the next heading of any name begins, so spans never overlap.
func Spans(text string) []Span {
	lines := strings.Split(normalize.Text(text), "\n")
	return spansOf(lines)
}

func spansOf(lines []string) []Span {
	var out []Span
	for i, line := range lines {
		name, ok := Detect(line)
		if !ok {
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].End = i
		}
		out = append(out, Span{Name: name, HeadingLine: i, Start: i + 1, End: len(lines)})
	}
	return out
}

// Segment builds the Section Map for a whole document text. Without any
// recognised heading the result is a single FullText entry. A name seen more
// than once gets its spans joined in order of appearance, separated by a
// blank line.
func Segment(text string) Map {
	normalized := normalize.Text(text)
	lines := strings.Split(normalized, "\n")
	spans := spansOf(lines)
	if len(spans) == 0 {
		return Map{FullText: normalized}
	}
	parts := make(map[Name][]string, len(spans))
	for _, sp := range spans {
		body := strings.TrimSpace(strings.Join(lines[sp.Start:sp.End], "\n"))
		if _, seen := parts[sp.Name]; !seen {
			parts[sp.Name] = []string{}
		}
		if body != "" {
			parts[sp.Name] = append(parts[sp.Name], body)
		}
	}
	m := make(Map, len(parts))
	for name, bodies := range parts {
		m[name] = normalize.Text(strings.Join(bodies, "\n\n"))
	}
	return m
}

// SegmentDocument segments the concatenated pages of d.
func SegmentDocument(d paper.Document) Map {
	return Segment(d.FullText())
}

// Text joins the named sections that are present, in argument order. When
// none of them exist but the map is the unstructured fallback, the full text
// is returned so callers still get input.
func (m Map) Text(names ...Name) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if s := m[n]; s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return m[FullText]
	}
	return strings.Join(parts, "\n\n")
}

// Names returns the present section names in canonical order.
func (m Map) Names() []Name {
	out := make([]Name, 0, len(m))
	for _, n := range All() {
		if _, ok := m[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
