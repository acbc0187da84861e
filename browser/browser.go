// Package browser owns the Rod browser lifecycle and the page pool used
// by the browser-based extraction strategy. Pages are scoped resources:
// acquired immediately before navigation, returned right after the
// attempt, never shared between concurrent runs (prevents fingerprint
// and cookie bleed between unrelated sessions).
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/tabfetch/tabfetch/config"
	"github.com/tabfetch/tabfetch/stealth"
	"github.com/ysmood/gson"
)

// RenderRequest asks for one rendered page.
type RenderRequest struct {
	URL     string
	Headers map[string]string
	Cookies []*http.Cookie

	// Fingerprint, when non-nil, is applied to the session before
	// navigation. One fingerprint per session.
	Fingerprint *stealth.Fingerprint

	// ScrollPages simulates reading: scroll down this many viewports
	// with jittered pauses (Delay) so lazy tables load.
	ScrollPages int
	Delay       func() time.Duration
}

// RenderResult is the rendered page.
type RenderResult struct {
	HTML     string
	FinalURL string
}

// Browser manages the shared headless browser and its page pool.
// Safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// New launches a headless browser and initialises the page pool.
func New(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// Flags that keep headless Chrome from advertising automation and
	// from throttling background pages mid-extraction.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	pool := rod.NewPagePool(cfg.MaxPages)
	slog.Info("page pool created", "maxPages", cfg.MaxPages)

	return &Browser{browser: b, pagePool: pool, cfg: cfg}, nil
}

// ActivePages reports how many pages are currently checked out.
func (b *Browser) ActivePages() int {
	return int(b.activePages.Load())
}

// Render navigates one exclusively-owned page and returns its HTML
// after the DOM stabilises. The page is always returned to the pool,
// including on context cancellation.
func (b *Browser) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	page, acquireErr := b.pagePool.Get(func() (*rod.Page, error) {
		return b.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, fmt.Errorf("browser: acquire page: %w", acquireErr)
	}

	// Cleanup uses the ORIGINAL page reference (without the request
	// context) so pool return succeeds even after the context expired.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	// Stealth and resource blocking must be installed before Navigate.
	stealth.Apply(page, req.Fingerprint)

	if len(req.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(req.Headers)}.Call(page)
	}

	for _, cookie := range req.Cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, parseErr := url.Parse(req.URL); parseErr == nil {
				domain = u.Host
			}
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   path,
		}.Call(page)
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, wrapNavError(err)
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// Simulated reading: jittered scrolls trigger lazy-loaded tables.
	if req.ScrollPages > 0 {
		scroll(p, req.ScrollPages, req.Delay)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, wrapNavError(htmlErr)
	}

	finalURL := req.URL
	if res, err := p.Eval(`() => window.location.href`); err == nil {
		if s := res.Value.Str(); s != "" {
			finalURL = s
		}
	}

	return &RenderResult{HTML: rawHTML, FinalURL: finalURL}, nil
}

// Close drains the page pool and kills the browser process. Call on
// graceful shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining page pool")
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	b.browser.MustClose()
	slog.Info("browser shutdown complete")
}

func scroll(p *rod.Page, pages int, delay func() time.Duration) {
	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return
	}
	viewportHeight := res.Value.Int()
	for i := 0; i < pages; i++ {
		if err := p.Mouse.Scroll(0, float64(viewportHeight), 0); err != nil {
			return
		}
		pause := 200 * time.Millisecond
		if delay != nil {
			pause = delay()
		}
		time.Sleep(pause)
	}
}

func wrapNavError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("browser: navigation failed: %w", err)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
