// Package resolve turns bibliographic records into trusted candidate URLs.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/archive"
	"github.com/mweiler/primary-preserver/internal/trust"
)

// Config controls resolution endpoints and credentials. Base URLs are
// overridable so tests can point at local servers.
type Config struct {
	DOIBaseURL       string
	UnpaywallBaseURL string
	ADSGatewayURL    string
	LegacyADSPDFURL  string
	ADSToken         string
	UnpaywallEmail   string
	Timeout          time.Duration
}

func (c *Config) applyDefaults() {
	if c.DOIBaseURL == "" {
		c.DOIBaseURL = "https://doi.org"
	}
	if c.UnpaywallBaseURL == "" {
		c.UnpaywallBaseURL = "https://api.unpaywall.org/v2"
	}
	if c.ADSGatewayURL == "" {
		c.ADSGatewayURL = "https://ui.adsabs.harvard.edu/link_gateway"
	}
	if c.LegacyADSPDFURL == "" {
		c.LegacyADSPDFURL = "http://adsabs.harvard.edu/pdf"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Resolver produces an ordered, trust-filtered candidate list per record.
// Order expresses confidence: DOI-resolved, then open-access lookup, then the
// index gateway link, then the caller's hint, then the legacy fallback.
type Resolver struct {
	cfg    Config
	client *http.Client
	policy *trust.Policy
	logger *zap.Logger
}

// New constructs a Resolver.
func New(cfg Config, client *http.Client, policy *trust.Policy, logger *zap.Logger) *Resolver {
	cfg.applyDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Resolver{cfg: cfg, client: client, policy: policy, logger: logger}
}

// Resolve never fails: each step's network error degrades to fewer
// candidates. An empty result means no primary candidate exists.
func (r *Resolver) Resolve(ctx context.Context, rec archive.Record) []string {
	var candidates []string
	add := func(u string) {
		if u != "" && r.policy.IsPrimary(u) {
			candidates = append(candidates, u)
		}
	}

	doi := strings.TrimSpace(rec.DOI)
	bibcode := strings.TrimSpace(rec.Bibcode)

	if doi != "" {
		add(r.resolveDOI(ctx, doi))
		for _, u := range r.unpaywallPDFs(ctx, doi) {
			add(u)
		}
	}
	if bibcode != "" && r.cfg.ADSToken != "" {
		add(fmt.Sprintf("%s/%s/PUB_PDF", r.cfg.ADSGatewayURL, url.PathEscape(bibcode)))
	}
	add(strings.TrimSpace(rec.URLHint))

	if len(candidates) == 0 && bibcode != "" {
		add(fmt.Sprintf("%s/%s", r.cfg.LegacyADSPDFURL, url.PathEscape(bibcode)))
	}
	return candidates
}

// resolveDOI follows the identifier redirect chain and returns the final URL,
// or "" when resolution fails.
func (r *Resolver) resolveDOI(ctx context.Context, doi string) string {
	target := fmt.Sprintf("%s/%s", r.cfg.DOIBaseURL, doi)
	resp, err := r.get(ctx, target)
	if err != nil {
		r.logger.Debug("doi resolution failed", zap.String("doi", doi), zap.Error(err))
		return ""
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return ""
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
}

type unpaywallResponse struct {
	BestOALocation *unpaywallLocation  `json:"best_oa_location"`
	OALocations    []unpaywallLocation `json:"oa_locations"`
}

// unpaywallPDFs queries the open-access lookup. The step silently skips when
// no contact email is configured.
func (r *Resolver) unpaywallPDFs(ctx context.Context, doi string) []string {
	if r.cfg.UnpaywallEmail == "" {
		return nil
	}
	target := fmt.Sprintf("%s/%s?email=%s", r.cfg.UnpaywallBaseURL, doi, url.QueryEscape(r.cfg.UnpaywallEmail))
	resp, err := r.get(ctx, target)
	if err != nil {
		r.logger.Debug("unpaywall lookup failed", zap.String("doi", doi), zap.Error(err))
		return nil
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return nil
	}
	var payload unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		r.logger.Debug("unpaywall decode failed", zap.String("doi", doi), zap.Error(err))
		return nil
	}

	var urls []string
	if payload.BestOALocation != nil && payload.BestOALocation.URLForPDF != "" {
		urls = append(urls, payload.BestOALocation.URLForPDF)
	}
	for _, loc := range payload.OALocations {
		if loc.URLForPDF != "" {
			urls = append(urls, loc.URLForPDF)
		}
	}
	return urls
}

func (r *Resolver) get(ctx context.Context, target string) (*http.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
