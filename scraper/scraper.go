// Package scraper owns the headless browser and hands out rendering sessions
// for gallery extraction.
package scraper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/models"
)

// Scraper manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32

	mu     sync.Mutex
	health map[*rod.Page]*tabHealth
}

// New launches a headless browser and initialises the reusable page pool.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// Stealth flags.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "ja-JP")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)
	return &Scraper{
		browser:    browser,
		pagePool:   rod.NewPagePool(browserCfg.MaxPages),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		health:     make(map[*rod.Page]*tabHealth),
	}, nil
}

// Open borrows a tab from the pool. The returned release navigates the tab
// to about:blank and puts it back, or closes it when it is due for
// retirement; it must be called exactly once.
func (s *Scraper) Open(ctx context.Context) (gallery.Page, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, categorizeError(err, "session not opened")
	}

	s.activePages.Add(1)
	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		p, err := s.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, err
		}
		s.track(p, time.Now())
		return p, nil
	})
	if err != nil {
		s.activePages.Add(-1)
		return nil, nil, models.NewPipelineError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}

	rp := &rodPage{
		page:    page,
		cfg:     s.scraperCfg,
		stealth: s.browserCfg.Stealth,
	}
	var released atomic.Bool
	release := func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		defer s.activePages.Add(-1)
		rp.stopHijack()

		if s.retire(page, !rp.failed.Load()) {
			_ = page.Close()
			// A nil slot makes the pool create a fresh tab on the next Get.
			s.pagePool.Put(nil)
			return
		}
		// The original page has no request context, so this works even
		// after the extraction deadline passed.
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}
	return rp, release, nil
}

// track starts the health record of a tab created at created.
func (s *Scraper) track(page *rod.Page, created time.Time) {
	s.mu.Lock()
	s.health[page] = newTabHealth(created)
	s.mu.Unlock()
}

// retire records the outcome of one extraction on page and reports whether
// the tab should be closed instead of reused.
func (s *Scraper) retire(page *rod.Page, ok bool) bool {
	now := time.Now()
	s.mu.Lock()
	h, found := s.health[page]
	if !found {
		h = newTabHealth(now)
		s.health[page] = h
	}
	s.mu.Unlock()

	h.record(ok)
	if !h.shouldRetire(now) {
		return false
	}

	s.mu.Lock()
	delete(s.health, page)
	s.mu.Unlock()
	slog.Debug("retiring browser tab", "errScore", h.errScore, "uses", h.uses)
	return true
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.browserCfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
