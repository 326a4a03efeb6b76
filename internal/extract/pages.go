package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// PagesJSON reads the page dump written by an upstream PDF reader:
// {"file_name": ..., "num_pages": n, "pages": [{"page": 1, "text": ...}]}.
type PagesJSON struct{}

func (PagesJSON) Name() string { return "pages-json" }

func (PagesJSON) CanHandle(path string, data []byte) bool {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

type pagesFile struct {
	FileName string `json:"file_name"`
	NumPages int    `json:"num_pages"`
	Pages    []struct {
		Page flexInt `json:"page"`
		Text string  `json:"text"`
	} `json:"pages"`
}

func (PagesJSON) Extract(data []byte) (paper.Document, error) {
	var f pagesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return paper.Document{}, err
	}
	if f.Pages == nil {
		return paper.Document{}, fmt.Errorf("no \"pages\" array")
	}
	doc := paper.Document{Source: f.FileName, Pages: make([]paper.Page, 0, len(f.Pages))}
	for i, p := range f.Pages {
		n := int(p.Page)
		if n <= 0 {
			n = i + 1
		}
		doc.Pages = append(doc.Pages, paper.Page{Number: n, Text: p.Text})
	}
	return doc, nil
}

// LoadTables reads a tables dump: [{"table_index": 0, "page": "3", "rows": [[...]]}].
// Page numbers may be strings or numbers.
func LoadTables(path string) ([]paper.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTables(data)
}

// ParseTables is LoadTables for data already in memory.
func ParseTables(data []byte) ([]paper.RawTable, error) {
	var raw []struct {
		Index flexInt     `json:"table_index"`
		Page  flexInt     `json:"page"`
		Rows  [][]flexStr `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	out := make([]paper.RawTable, 0, len(raw))
	for _, t := range raw {
		rows := make([][]string, 0, len(t.Rows))
		for _, r := range t.Rows {
			row := make([]string, len(r))
			for i, c := range r {
				row[i] = string(c)
			}
			rows = append(rows, row)
		}
		out = append(out, paper.RawTable{Index: int(t.Index), Page: int(t.Page), Rows: rows})
	}
	return out, nil
}

// flexInt accepts 3, "3" and null.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("not an integer: %s", b)
		}
		i = int(f)
	}
	*n = flexInt(i)
	return nil
}

// flexStr accepts strings, numbers and null as cell text.
type flexStr string

func (s *flexStr) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexStr(v)
	default:
		*s = flexStr(b)
	}
	return nil
}
