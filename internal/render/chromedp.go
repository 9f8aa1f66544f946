package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// chromeBinaries are probed in order to decide backend availability.
var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// downloadSelectors are tried in order to find an explicit PDF/download
// control on the rendered page.
var downloadSelectors = []selector{
	{query: `a[href$='.pdf']`, byQuery: true},
	{query: `//a[contains(., 'PDF')]`},
	{query: `//button[contains(., 'PDF')]`},
	{query: `//a[contains(., 'Download')]`},
}

type selector struct {
	query   string
	byQuery bool
}

// ChromedpConfig controls the browser backend.
type ChromedpConfig struct {
	NavTimeout      time.Duration
	DownloadTimeout time.Duration
	UserAgent       string
}

// Chromedp renders pages with headless Chrome: it navigates, tries to capture
// a real PDF download via the page's own controls, and falls back to printing
// the rendered page.
type Chromedp struct {
	cfg       ChromedpConfig
	available bool
	logger    *zap.Logger

	allocOnce   sync.Once
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp probes for a Chrome binary and builds the backend.
func NewChromedp(cfg ChromedpConfig, logger *zap.Logger) *Chromedp {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 120 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	available := false
	for _, bin := range chromeBinaries {
		if _, err := exec.LookPath(bin); err == nil {
			available = true
			break
		}
	}
	return &Chromedp{cfg: cfg, available: available, logger: logger}
}

// Name identifies the backend in logs.
func (c *Chromedp) Name() string { return "chromedp" }

// Available reports whether a Chrome binary was found on PATH.
func (c *Chromedp) Available() bool { return c.available }

// Close tears down the shared allocator, if one was ever created.
func (c *Chromedp) Close() {
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

func (c *Chromedp) ensureAllocator() {
	c.allocOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if c.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
		}
		c.allocator, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	})
}

// RenderPDF navigates to the page, attempts a scripted download through the
// page's own PDF control, and prints the rendered page as a last resort.
func (c *Chromedp) RenderPDF(ctx context.Context, rawURL, outPath string) error {
	c.ensureAllocator()

	tabCtx, cancelTab := chromedp.NewContext(c.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, c.cfg.NavTimeout)
	defer cancelTask()

	// Forward the caller's cancellation into the browser task.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			cancelTask()
		case <-stop:
		}
	}()

	downloadDir := filepath.Dir(outPath)
	guidCh := make(chan string, 1)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok && e.State == browser.DownloadProgressStateCompleted {
			select {
			case guidCh <- e.GUID:
			default:
			}
		}
	})

	if err := chromedp.Run(taskCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	for _, sel := range downloadSelectors {
		if c.tryDownload(taskCtx, sel, downloadDir, outPath, guidCh) {
			return nil
		}
	}

	// No download control found: print the rendered page.
	return c.printToPDF(taskCtx, outPath)
}

// tryDownload clicks the selector if it exists and waits for a completed
// browser download, moving it to outPath on success.
func (c *Chromedp) tryDownload(ctx context.Context, sel selector, dir, outPath string, guidCh <-chan string) bool {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	if sel.byQuery {
		opts = append(opts, chromedp.ByQuery)
	} else {
		opts = append(opts, chromedp.BySearch)
	}
	if err := chromedp.Run(ctx, chromedp.Nodes(sel.query, &nodes, opts...)); err != nil || len(nodes) == 0 {
		return false
	}

	if err := chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0])); err != nil {
		return false
	}

	select {
	case guid := <-guidCh:
		src := filepath.Join(dir, guid)
		if err := os.Rename(src, outPath); err != nil {
			c.logger.Debug("move captured download failed", zap.Error(err))
			return false
		}
		return true
	case <-time.After(c.cfg.DownloadTimeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Chromedp) printToPDF(ctx context.Context, outPath string) error {
	var pdf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.27).
			WithPaperHeight(11.69).
			Do(ctx)
		if err != nil {
			return err
		}
		pdf = data
		return nil
	})
	if err := chromedp.Run(ctx, action); err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}
	if err := os.WriteFile(outPath, pdf, 0o600); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
