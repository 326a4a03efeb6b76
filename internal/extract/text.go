package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// PlainText reads UTF-8 text. Form feeds separate pages, as pdftotext
// writes them.
type PlainText struct{}

func (PlainText) Name() string { return "text" }

func (PlainText) CanHandle(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md":
		return true
	}
	return len(data) > 0 && validPrefix(data) && !bytes.ContainsRune(data, 0)
}

func (PlainText) Extract(data []byte) (paper.Document, error) {
	parts := strings.Split(string(data), "\f")
	doc := paper.Document{Pages: make([]paper.Page, 0, len(parts))}
	for i, p := range parts {
		if i == len(parts)-1 && strings.TrimSpace(p) == "" && i > 0 {
			break
		}
		doc.Pages = append(doc.Pages, paper.Page{Number: i + 1, Text: strings.TrimSpace(p)})
	}
	return doc, nil
}

// validPrefix is utf8.Valid tolerating a rune cut off by sniffing.
func validPrefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
