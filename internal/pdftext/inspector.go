// Package pdftext inspects downloaded PDFs: page counts, extracted text, and
// a cheap structural probe.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Inspector reports the page count and a text prefix of a PDF file.
type Inspector interface {
	Inspect(path string, maxPages int) (pages int, text string, err error)
}

// FitzInspector implements Inspector with MuPDF via go-fitz.
type FitzInspector struct{}

// NewFitzInspector returns the MuPDF-backed inspector.
func NewFitzInspector() *FitzInspector {
	return &FitzInspector{}
}

// Inspect opens the file as a PDF, counts its pages, and extracts text from at
// most the first maxPages pages.
func (FitzInspector) Inspect(path string, maxPages int) (int, string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	limit := pages
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}

	var sb strings.Builder
	for i := 0; i < limit; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}
	return pages, sb.String(), nil
}

// WellFormed reports whether the file parses as a PDF with at least one page.
// Used as a cheap gate on rendered artifacts before full validation.
func WellFormed(path string) bool {
	n, err := api.PageCountFile(path)
	return err == nil && n > 0
}
