package trust

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyIsPrimary(t *testing.T) {
	p := NewPolicy(nil)

	cases := []struct {
		url     string
		primary bool
	}{
		{"https://doi.org/10.1002/andp.19053221004", true},
		{"https://DOI.ORG/10.1002/andp.19053221004", true},
		{"https://ui.adsabs.harvard.edu/link_gateway/x/PUB_PDF", true},
		{"http://adsabs.harvard.edu/pdf/1905AnP...322..891E", true},
		{"https://mirror.archive.org/details/x", true},
		{"https://www.gutenberg.org/ebooks/5001", true},
		{"https://evil.example.com/fake.pdf", false},
		{"https://example.com/archive.org.html", false},
		{"", false},
		{"://not-a-url", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.primary, p.IsPrimary(tc.url), "url %q", tc.url)
	}
}

func TestPolicyExtraHosts(t *testing.T) {
	p := NewPolicy([]string{"Library.Example.Org", "  ", ""})

	require.True(t, p.IsPrimary("https://library.example.org/scan.pdf"))
	require.True(t, p.IsPrimary("https://sub.library.example.org/scan.pdf"))
	require.True(t, p.IsTrustedHost("library.example.org"))

	// Built-in set untouched by junk entries.
	require.False(t, p.IsPrimary("https://unrelated.example.net/"))
}

func TestPolicyTrustedHosts(t *testing.T) {
	p := NewPolicy(nil)

	require.True(t, p.IsTrustedHost("archive.org"))
	require.True(t, p.IsTrustedHost("UI.ADSABS.HARVARD.EDU"))
	require.False(t, p.IsTrustedHost("nature.com"))
	require.False(t, p.IsTrustedHost(""))
}

func TestPolicyIsLicensed(t *testing.T) {
	p := NewPolicy(nil)

	require.True(t, p.IsLicensed("https://www.jstor.org/stable/123"))
	require.True(t, p.IsLicensed("https://link.springer.com/article/x"))
	require.False(t, p.IsLicensed("https://archive.org/details/x"))
}
