package render

import (
	"context"
	"fmt"
	"os/exec"
)

// Wkhtmltopdf prints a page straight to PDF with the wkhtmltopdf binary.
type Wkhtmltopdf struct {
	binary string
}

// NewWkhtmltopdf probes for the wkhtmltopdf binary on PATH.
func NewWkhtmltopdf() *Wkhtmltopdf {
	path, err := exec.LookPath("wkhtmltopdf")
	if err != nil {
		return &Wkhtmltopdf{}
	}
	return &Wkhtmltopdf{binary: path}
}

// Name identifies the backend in logs.
func (w *Wkhtmltopdf) Name() string { return "wkhtmltopdf" }

// Available reports whether the binary was found.
func (w *Wkhtmltopdf) Available() bool { return w.binary != "" }

// RenderPDF shells out to wkhtmltopdf for a print-style conversion.
func (w *Wkhtmltopdf) RenderPDF(ctx context.Context, rawURL, outPath string) error {
	cmd := exec.CommandContext(ctx, w.binary,
		"--quiet",
		"--page-size", "A4",
		"--encoding", "UTF-8",
		"--print-media-type",
		rawURL,
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("wkhtmltopdf: %w: %s", err, string(out))
	}
	return nil
}
