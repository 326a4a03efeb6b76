package report

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

const htmlHead = `<!doctype html>
<html><head><meta charset="utf-8"><title>Extraction report</title></head><body>
`

// HTML converts a Markdown report into a standalone HTML page.
func HTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(htmlHead)
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, err
	}
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}
