// Package extract turns input documents into page texts and raw tables.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// HTML extracts readable text from a full-text article page, preferring
// <main> or <article> and falling back to <body>. Headings, paragraphs, list
// items and pre blocks are kept on their own lines; navigation, footers,
// scripts and consent banners are skipped. Tables are left out of the text
// and returned by ExtractTables.
type HTML struct{}

func (HTML) Name() string { return "html" }

func (HTML) CanHandle(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func (HTML) Extract(data []byte) (paper.Document, error) {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return paper.Document{}, err
	}
	var b strings.Builder
	if content := contentRoot(node); content != nil {
		collectText(&b, content, false)
	}
	return paper.Document{Pages: []paper.Page{{Number: 1, Text: normalizeWhitespace(b.String())}}}, nil
}

// ExtractTables returns every <table> under the content root. Cells of
// header and body rows are both kept; ragged rows are left ragged.
func (HTML) ExtractTables(data []byte) ([]paper.RawTable, error) {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	content := contentRoot(node)
	if content == nil {
		return nil, nil
	}
	var out []paper.RawTable
	for _, t := range findAll(content, "table") {
		var rows [][]string
		for _, tr := range findAll(t, "tr") {
			var row []string
			for c := tr.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					var cb strings.Builder
					collectText(&cb, c, false)
					row = append(row, collapseSpaces(strings.TrimSpace(cb.String())))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
		out = append(out, paper.RawTable{Index: len(out), Page: 1, Rows: rows})
	}
	return out, nil
}

func contentRoot(n *html.Node) *html.Node {
	for _, tag := range []string{"main", "article", "body"} {
		if c := findFirst(n, tag); c != nil {
			return c
		}
	}
	return nil
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

// findAll returns matching descendants in document order without descending
// into matches, so nested tables are not reported twice.
func findAll(n *html.Node, tag string) []*html.Node {
	var res []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, tag) {
			res = append(res, c)
			continue
		}
		res = append(res, findAll(c, tag)...)
	}
	return res
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "table", "figure":
			return
		case "pre":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "section", "div":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(data)
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li", "pre":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer reports whether the element looks like a cookie or
// consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && key != "role" && key != "aria-label" && !strings.HasPrefix(key, "data-") {
			continue
		}
		val := strings.ToLower(attr.Val)
		for _, marker := range []string{"cookie", "consent", "gdpr"} {
			if strings.Contains(val, marker) {
				return true
			}
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
