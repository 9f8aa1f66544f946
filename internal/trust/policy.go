// Package trust implements the primary-host whitelist policy.
//
// The policy is the sole gate that keeps the pipeline from fetching an
// untrusted origin: every candidate URL must pass IsPrimary before any
// network call is made against it.
package trust

import (
	"net/url"
	"strings"
)

// primaryWhitelist is the fixed set of hosts that may serve primary-source
// copies. Matching is suffix-or-substring on the URL host, case-insensitive.
var primaryWhitelist = []string{
	"doi.org",
	"onlinelibrary.wiley.com",
	"ui.adsabs.harvard.edu",
	"adsabs.harvard.edu",
	"archive.org",
	"echo.mpiwg-berlin.mpg.de",
	"mpiwg-berlin.mpg.de",
	"digi.ub.uni-heidelberg.de",
	"heidicon.ub.uni-heidelberg.de",
	"retro.seals.ch",
	"e-periodica.ch",
	"e-rara.ch",
	"journals.aps.org",
	"projecteuclid.org",
	"jstor.org",
	"gallica.bnf.fr",
	"nobelprize.org",
	"nature.com",
	"scientificamerican.com",
	"link.springer.com",
	"springer.com",
	"gutenberg.org",
}

// scanTrusted are the hosts whose image-only scans may be accepted without a
// keyword match when scan-only acceptance is enabled.
var scanTrusted = []string{
	"adsabs.harvard.edu",
	"ui.adsabs.harvard.edu",
	"archive.org",
	"echo.mpiwg-berlin.mpg.de",
	"digi.ub.uni-heidelberg.de",
}

// licensedMarkers flag URLs on licensed publisher platforms that require the
// allow-licensed toggle before they are attempted.
var licensedMarkers = []string{"jstor.org", "springer"}

// Policy is an immutable trust set built once at startup.
type Policy struct {
	primary []string
	trusted []string
}

// NewPolicy builds a Policy from the built-in whitelist plus operator-supplied
// extra hosts. Extra hosts join both the primary set and the scan-trusted set.
func NewPolicy(extraHosts []string) *Policy {
	p := &Policy{
		primary: append([]string(nil), primaryWhitelist...),
		trusted: append([]string(nil), scanTrusted...),
	}
	for _, h := range extraHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		p.primary = append(p.primary, h)
		p.trusted = append(p.trusted, h)
	}
	return p
}

// IsPrimary reports whether the URL's host matches the primary whitelist.
// Malformed URLs are never primary.
func (p *Policy) IsPrimary(rawURL string) bool {
	return matchHost(hostOf(rawURL), p.primary)
}

// IsTrustedHost reports whether host is in the scan-only trusted set.
func (p *Policy) IsTrustedHost(host string) bool {
	return matchHost(strings.ToLower(host), p.trusted)
}

// IsLicensed reports whether the URL points at a licensed publisher platform.
func (p *Policy) IsLicensed(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, m := range licensedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// TrustedHosts returns a copy of the scan-trusted host list.
func (p *Policy) TrustedHosts() []string {
	return append([]string(nil), p.trusted...)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func matchHost(host string, set []string) bool {
	if host == "" {
		return false
	}
	for _, entry := range set {
		if strings.HasSuffix(host, entry) || strings.Contains(host, entry) {
			return true
		}
	}
	return false
}
