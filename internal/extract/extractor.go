package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
)

// ErrUnsupportedFormat is returned when no extractor accepts an input.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor turns one input file into page texts. Implementations are
// deterministic and free of side effects.
type Extractor interface {
	Name() string
	// CanHandle reports whether the extractor understands the input. data
	// holds at most the first sniffLen bytes.
	CanHandle(path string, data []byte) bool
	Extract(data []byte) (paper.Document, error)
}

// TableExtractor is implemented by extractors whose format carries tables.
type TableExtractor interface {
	ExtractTables(data []byte) ([]paper.RawTable, error)
}

const sniffLen = 512

// Default returns the built-in extractors in selection order.
func Default() []Extractor {
	return []Extractor{PagesJSON{}, HTML{}, PlainText{}}
}

// Select returns the first extractor that can handle the input.
func Select(exts []Extractor, path string, data []byte) (Extractor, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	for _, e := range exts {
		if e.CanHandle(path, head) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
}

// Load reads path and extracts it with the first matching default extractor.
// The document source defaults to the file name.
func Load(path string) (paper.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return paper.Document{}, err
	}
	return Parse(path, data)
}

// Parse is Load for data already in memory.
func Parse(path string, data []byte) (paper.Document, error) {
	e, err := Select(Default(), path, data)
	if err != nil {
		return paper.Document{}, err
	}
	doc, err := e.Extract(data)
	if err != nil {
		return paper.Document{}, fmt.Errorf("%s: %s: %w", filepath.Base(path), e.Name(), err)
	}
	if doc.Source == "" {
		doc.Source = filepath.Base(path)
	}
	return doc, nil
}

// EmbeddedTables returns the tables carried inside a document, if its format
// has any. Formats without tables yield nil.
func EmbeddedTables(path string, data []byte) ([]paper.RawTable, error) {
	e, err := Select(Default(), path, data)
	if err != nil {
		return nil, err
	}
	te, ok := e.(TableExtractor)
	if !ok {
		return nil, nil
	}
	return te.ExtractTables(data)
}
