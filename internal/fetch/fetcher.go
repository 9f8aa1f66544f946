// Package fetch downloads candidate URLs with retry and classifies payloads.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/archive"
	"github.com/mweiler/primary-preserver/internal/metrics"
)

// browserHeaders is the fixed header profile sent with every request. Several
// archive hosts refuse obviously non-browser clients.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.8,de;q=0.6",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Config controls Fetcher behavior.
type Config struct {
	Timeout  time.Duration
	Retries  int
	Insecure bool
	Backoff  *BackoffPolicy
}

// Fetcher performs streamed GETs with jittered retry on transient failures.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff *BackoffPolicy
	logger  *zap.Logger
}

// NewClient builds an HTTP client with the shared transport profile. The
// connection pool is shared across workers; per-call deadlines come from the
// request context.
func NewClient(cfg Config) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport}
}

// New constructs a Fetcher.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = NewClient(cfg)
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NewBackoffPolicy()
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	f := &Fetcher{
		client:  client,
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
	f.client.Timeout = cfg.Timeout
	return f
}

// Fetch retrieves one URL, streaming PDF payloads to outPath. Transient
// failures are retried with backoff up to the configured budget; exhaustion
// abandons this URL only, carrying the last diagnostic note.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, outPath string) archive.FetchOutcome {
	note := ""
	for attempt := 0; attempt < f.retries; attempt++ {
		outcome, retry, err := f.attempt(ctx, rawURL, outPath)
		if err == nil && !retry {
			return outcome
		}
		if err != nil {
			note = fmt.Sprintf("error:%v", err)
		} else {
			note = outcome.Note
		}
		if !retry {
			return archive.FetchOutcome{Class: archive.FetchRejected, FinalURL: rawURL, Note: note}
		}
		f.logger.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.String("note", note),
		)
		metrics.FetchRetry()
		f.backoff.Sleep(ctx, attempt)
		if ctx.Err() != nil {
			break
		}
	}
	return archive.FetchOutcome{Class: archive.FetchRejected, FinalURL: rawURL, Note: note}
}

// attempt performs a single GET. retry=true means the caller should back off
// and try again within its budget.
func (f *Fetcher) attempt(ctx context.Context, rawURL, outPath string) (archive.FetchOutcome, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return archive.FetchOutcome{}, false, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Network errors mid-handshake are transient until proven otherwise.
		return archive.FetchOutcome{}, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if isRetryableStatus(resp.StatusCode) {
		return archive.FetchOutcome{
			Class:    archive.FetchRejected,
			FinalURL: finalURL,
			Note:     fmt.Sprintf("http_status:%d", resp.StatusCode),
		}, true, nil
	}
	if resp.StatusCode >= 400 {
		return archive.FetchOutcome{
			Class:    archive.FetchRejected,
			FinalURL: finalURL,
			Note:     fmt.Sprintf("http_status:%d", resp.StatusCode),
		}, false, nil
	}

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ctype, "pdf") || LooksLikePDF(finalURL):
		if err := f.streamTo(outPath, resp.Body); err != nil {
			// A broken transfer also earns a backoff before the next try.
			return archive.FetchOutcome{}, ctx.Err() == nil, err
		}
		return archive.FetchOutcome{Class: archive.FetchSavedPDF, FinalURL: finalURL}, false, nil

	case strings.Contains(ctype, "html") || strings.HasPrefix(ctype, "text/"):
		return archive.FetchOutcome{Class: archive.FetchNeedsRender, FinalURL: finalURL}, false, nil

	case ctype == "":
		return f.classifyBySniff(finalURL, outPath, resp.Body)

	default:
		return archive.FetchOutcome{
			Class:    archive.FetchRejected,
			FinalURL: finalURL,
			Note:     "unsupported_ctype:" + ctype,
		}, false, nil
	}
}

// classifyBySniff handles responses without a Content-Type by sniffing the
// payload: real PDFs are saved, text-ish payloads go to the renderer path.
func (f *Fetcher) classifyBySniff(finalURL, outPath string, body io.Reader) (archive.FetchOutcome, bool, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return archive.FetchOutcome{}, true, err
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if detected.Is("application/pdf") {
		if err := f.streamTo(outPath, io.MultiReader(bytes.NewReader(head), body)); err != nil {
			return archive.FetchOutcome{}, true, err
		}
		return archive.FetchOutcome{Class: archive.FetchSavedPDF, FinalURL: finalURL}, false, nil
	}
	return archive.FetchOutcome{Class: archive.FetchNeedsRender, FinalURL: finalURL}, false, nil
}

func (f *Fetcher) streamTo(path string, body io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("stream body to %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// LooksLikePDF reports whether the URL's shape strongly suggests a direct PDF
// link even when the server does not say so.
func LooksLikePDF(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "format=pdf") {
		return true
	}
	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "pdf")
}
