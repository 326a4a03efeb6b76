package report

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/normalize"
)

// WritePDF renders a minimal PDF from Markdown text: headings in bold,
// everything else as wrapped paragraphs. It does not do full Markdown layout.
func WritePDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	// The core fonts are cp1252, which has the micro sign but not Greek mu.
	latin := strings.NewReplacer(normalize.Micro, "µ")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			pdf.Ln(5)
			continue
		}
		s = tr(latin.Replace(strings.ReplaceAll(s, "`", "")))
		if strings.HasPrefix(s, "#") {
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			continue
		}
		pdf.MultiCell(0, 5, s, "", "L", false)
	}
	if err := scanner.Err(); err != nil {
		pdf.Close()
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}
