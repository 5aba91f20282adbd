package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/site"
	"github.com/ysmood/gson"
)

const (
	domStableInterval = 300 * time.Millisecond
	domStableDiff     = 0.1
)

// measureJS reports the values a scroll is judged by.
const measureJS = `() => ({
	h: Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight),
	n: document.querySelectorAll('img').length,
})`

const scrollJS = `() => window.scrollTo(0, Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight))`

// rodPage is one borrowed browser tab driven through a single extraction.
type rodPage struct {
	page    *rod.Page
	cfg     config.ScraperConfig
	stealth bool

	// failed is set when the browser misbehaved during this session.
	failed atomic.Bool

	mu     sync.Mutex
	router *rod.HijackRouter
}

var _ gallery.Page = (*rodPage)(nil)

// Render navigates to url and waits until the DOM stops changing, then gives
// lazy loaders RenderSettle to swap in real sources.
//
// Stealth, headers and the hijack router are installed before Navigate;
// they only apply to navigations that start after them.
func (p *rodPage) Render(ctx context.Context, url string) error {
	return p.track(p.render(ctx, url))
}

func (p *rodPage) render(ctx context.Context, url string) error {
	if p.stealth {
		if _, err := p.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	headers := map[string]string{"Referer": site.RefererFor(url)}
	if p.cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = p.cfg.AcceptLanguage
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(p.page)

	if router := setupHijack(p.page, p.cfg.BlockedResourceTypes); router != nil {
		p.mu.Lock()
		p.router = router
		p.mu.Unlock()
	}

	page := p.page.Context(ctx)
	nav := page
	if p.cfg.NavigationTimeout > 0 {
		nav = page.Timeout(p.cfg.NavigationTimeout)
	}
	err := nav.Navigate(url)
	if p.cfg.NavigationTimeout > 0 {
		nav.CancelTimeout()
	}
	if err != nil {
		return categorizeError(err, "navigation to gallery page failed")
	}

	if err := page.WaitDOMStable(domStableInterval, domStableDiff); err != nil {
		if ctx.Err() != nil {
			return categorizeError(ctx.Err(), "page did not settle")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return sleep(ctx, p.cfg.RenderSettle)
}

// Snapshot serializes the live DOM.
func (p *rodPage) Snapshot(ctx context.Context) (gallery.Snapshot, error) {
	page := p.page.Context(ctx)
	html, err := page.HTML()
	if err != nil {
		return gallery.Snapshot{}, p.track(categorizeError(err, "failed to read page HTML"))
	}
	return gallery.Snapshot{HTML: html, URL: evalStringOrEmpty(page, `() => window.location.href`)}, nil
}

// ScrollAndWait scrolls to the bottom, waits ScrollSettle and reports whether
// the document height or the number of img elements changed.
func (p *rodPage) ScrollAndWait(ctx context.Context) (bool, error) {
	changed, err := p.scroll(ctx)
	return changed, p.track(err)
}

func (p *rodPage) scroll(ctx context.Context) (bool, error) {
	page := p.page.Context(ctx)

	before, err := measure(page)
	if err != nil {
		return false, categorizeError(err, "failed to measure page")
	}
	if _, err := page.Eval(scrollJS); err != nil {
		return false, categorizeError(err, "scroll failed")
	}
	if err := sleep(ctx, p.cfg.ScrollSettle); err != nil {
		return false, err
	}
	after, err := measure(page)
	if err != nil {
		return false, categorizeError(err, "failed to measure page")
	}
	return after != before, nil
}

// track marks the tab unhealthy for errors other than caller cancellation.
func (p *rodPage) track(err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		p.failed.Store(true)
	}
	return err
}

func (p *rodPage) stopHijack() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.router != nil {
		_ = p.router.Stop()
		p.router = nil
	}
}

type pageMetrics struct {
	height int
	images int
}

func measure(page *rod.Page) (pageMetrics, error) {
	res, err := page.Eval(measureJS)
	if err != nil {
		return pageMetrics{}, err
	}
	return pageMetrics{
		height: res.Value.Get("h").Int(),
		images: res.Value.Get("n").Int(),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return categorizeError(ctx.Err(), "interrupted while waiting for page")
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw browser errors into typed PipelineErrors so the
// API layer can map them to HTTP status codes.
func categorizeError(err error, msg string) *models.PipelineError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPipelineError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewPipelineError(models.ErrCodeCanceled, "request canceled", err)
	default:
		return models.NewPipelineError(models.ErrCodeNavigation, msg, err)
	}
}
