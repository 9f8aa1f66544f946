// Package validate runs the content-plausibility gate on downloaded PDFs.
//
// Acceptance is a cheap heuristic, not authentication: it exists to catch
// wrong-document and landing-page mistakes, not to verify scholarly
// authenticity.
package validate

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/archive"
	"github.com/mweiler/primary-preserver/internal/pdftext"
	"github.com/mweiler/primary-preserver/internal/trust"
)

// subjectKeyword must appear in the extracted prefix text of a plausible
// primary copy (unless the scan-only relaxation applies).
const subjectKeyword = "einstein"

// venueKeywords are known publication venues. Their presence is informational
// only and never required for acceptance.
var venueKeywords = []string{
	"annalen der physik",
	"sitzungsberichte der preußischen akademie",
	"physikalische zeitschrift",
	"zeitschrift für physik",
	"physical review",
	"reviews of modern physics",
	"journal of the franklin institute",
	"annals of mathematics",
	"canadian journal of mathematics",
	"nature",
	"science",
	"comptes rendus",
}

const (
	maxTextPages = 3
	minPages     = 1
	maxPages     = 200
	bookMinPages = 50

	// Scan-only relaxation bounds: near-empty OCR text plus an article-like
	// page count on a trusted host forces acceptance.
	scanMaxTextLen = 100
	scanMinPages   = 2
	scanMaxPages   = 80
)

// Validator decides whether a downloaded PDF is a plausible primary copy.
type Validator struct {
	inspector      pdftext.Inspector
	policy         *trust.Policy
	acceptScanOnly bool
	logger         *zap.Logger
}

// New constructs a Validator.
func New(inspector pdftext.Inspector, policy *trust.Policy, acceptScanOnly bool, logger *zap.Logger) *Validator {
	return &Validator{
		inspector:      inspector,
		policy:         policy,
		acceptScanOnly: acceptScanOnly,
		logger:         logger,
	}
}

// Validate inspects the file and applies the plausibility rules. A corrupt or
// non-PDF file yields an all-false zero-count result, never an error.
func (v *Validator) Validate(path, sourceURL string, book bool) archive.ValidationResult {
	host := hostOf(sourceURL)

	pages, text, err := v.inspector.Inspect(path, maxTextPages)
	if err != nil {
		v.logger.Debug("pdf inspection failed", zap.String("path", path), zap.Error(err))
		return archive.ValidationResult{Host: host}
	}

	lower := strings.ToLower(text)
	res := archive.ValidationResult{
		HasSubject: strings.Contains(lower, subjectKeyword),
		HasVenue:   hasAnyVenue(lower),
		PageSane:   (pages >= minPages && pages <= maxPages) || (book && pages > bookMinPages),
		TextLen:    len(lower),
		Pages:      pages,
		Host:       host,
	}
	res.Accepted = res.HasSubject && res.PageSane

	// Relaxation only ever flips a rejection to an acceptance: genuine
	// image-only scans of authentic documents have no text to check.
	if !res.Accepted && v.acceptScanOnly && v.policy.IsTrustedHost(host) {
		if res.TextLen < scanMaxTextLen && pages >= scanMinPages && pages <= scanMaxPages {
			res.Accepted = true
		}
	}
	return res
}

func hasAnyVenue(lowerText string) bool {
	for _, venue := range venueKeywords {
		if strings.Contains(lowerText, venue) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
