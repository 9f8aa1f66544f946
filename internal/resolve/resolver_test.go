package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/archive"
	"github.com/mweiler/primary-preserver/internal/trust"
)

// testPolicy trusts the loopback host so httptest servers pass the whitelist.
func testPolicy() *trust.Policy {
	return trust.NewPolicy([]string{"127.0.0.1"})
}

func newResolver(cfg Config) *Resolver {
	cfg.Timeout = 2 * time.Second
	return New(cfg, nil, testPolicy(), zap.NewNop())
}

func TestResolveEmptyRecord(t *testing.T) {
	r := newResolver(Config{})
	got := r.Resolve(context.Background(), archive.Record{Title: "Untraceable"})
	require.Empty(t, got)
}

func TestResolveUntrustedHintFilteredOut(t *testing.T) {
	r := newResolver(Config{})
	got := r.Resolve(context.Background(), archive.Record{
		Title:   "Mirror copy",
		URLHint: "https://sketchy-mirror.example.com/einstein.pdf",
	})
	require.Empty(t, got)
}

func TestResolveOrdering(t *testing.T) {
	final := "/landing/einstein-1905"
	doiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == final {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, final, http.StatusFound)
	}))
	defer doiSrv.Close()

	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ops@example.org", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"best_oa_location": {"url_for_pdf": "https://archive.org/download/best.pdf"},
			"oa_locations": [
				{"url_for_pdf": "https://e-periodica.ch/other.pdf"},
				{"url_for_pdf": "https://sketchy.example.com/bad.pdf"},
				{"url_for_pdf": ""}
			]
		}`)
	}))
	defer oaSrv.Close()

	r := newResolver(Config{
		DOIBaseURL:       doiSrv.URL,
		UnpaywallBaseURL: oaSrv.URL,
		ADSToken:         "token",
		UnpaywallEmail:   "ops@example.org",
	})

	got := r.Resolve(context.Background(), archive.Record{
		DOI:     "10.1002/andp.19053221004",
		Bibcode: "1905AnP...322..891E",
		URLHint: "https://gallica.bnf.fr/view/123",
	})

	require.Equal(t, []string{
		doiSrv.URL + final,
		"https://archive.org/download/best.pdf",
		"https://e-periodica.ch/other.pdf",
		"https://ui.adsabs.harvard.edu/link_gateway/1905AnP...322..891E/PUB_PDF",
		"https://gallica.bnf.fr/view/123",
	}, got)
}

func TestResolveGatewayNeedsToken(t *testing.T) {
	r := newResolver(Config{})
	got := r.Resolve(context.Background(), archive.Record{Bibcode: "1905AnP...322..891E"})

	// Without a token the gateway link is skipped; the legacy fallback fills in.
	require.Equal(t, []string{"http://adsabs.harvard.edu/pdf/1905AnP...322..891E"}, got)
}

func TestResolveLegacyFallbackOnlyWhenEmpty(t *testing.T) {
	r := newResolver(Config{ADSToken: "token"})
	got := r.Resolve(context.Background(), archive.Record{Bibcode: "1905AnP...322..891E"})

	require.Equal(t, []string{
		"https://ui.adsabs.harvard.edu/link_gateway/1905AnP...322..891E/PUB_PDF",
	}, got)
}

func TestResolveDOIFailureDegrades(t *testing.T) {
	doiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer doiSrv.Close()

	r := newResolver(Config{DOIBaseURL: doiSrv.URL})
	got := r.Resolve(context.Background(), archive.Record{
		DOI:     "10.9999/broken",
		URLHint: "https://archive.org/details/fallback",
	})

	require.Equal(t, []string{"https://archive.org/details/fallback"}, got)
}

func TestResolveUnpaywallSkippedWithoutEmail(t *testing.T) {
	called := false
	oaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer oaSrv.Close()

	doiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer doiSrv.Close()

	r := newResolver(Config{DOIBaseURL: doiSrv.URL, UnpaywallBaseURL: oaSrv.URL})
	got := r.Resolve(context.Background(), archive.Record{DOI: "10.1002/andp.19053221004"})

	require.False(t, called)
	require.Len(t, got, 1)
}
