// Package paper holds the read-only inputs of one extraction run: the page
// texts of a scientific paper and the raw tables pulled out of it.
package paper

import "strings"

// Page is the raw text of a single page. Numbers are 1-based.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// Document is the ordered page sequence of one paper.
type Document struct {
	Source string `json:"file_name,omitempty"`
	Pages  []Page `json:"pages"`
}

// FullText joins all pages with a single newline, in page order.
func (d Document) FullText() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// RawTable is a table as produced by an upstream cell extractor. Rows may be
// ragged.
type RawTable struct {
	Index int        `json:"table_index"`
	Page  int        `json:"page"`
	Rows  [][]string `json:"rows"`
}

// Width returns the length of the longest row.
func (t RawTable) Width() int {
	w := 0
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
