// Package fetch downloads gallery photos from image CDNs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/galleryzip/cache"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/metrics"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/site"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Fetcher performs image downloads with a Chrome TLS fingerprint, a
// per-host rate limit and an optional byte cache. It is safe for
// concurrent use.
type Fetcher struct {
	client *http.Client
	cfg    config.DownloadConfig
	cache  *cache.Cache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher. c may be nil to disable caching.
func New(cfg config.DownloadConfig, c *cache.Cache) *Fetcher {
	transport := &http.Transport{
		DialTLSContext:        dialTLSChrome,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			slog.Warn("ignoring unsupported download proxy", "proxy", cfg.Proxy)
		}
	}

	return &Fetcher{
		client:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:      cfg,
		cache:    c,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Download fetches ref.ResolvedURL and falls back once to ref.OriginalURL.
// Failures are DOWNLOAD_FAILED PipelineErrors.
func (f *Fetcher) Download(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	data, err := f.Fetch(ctx, ref.ResolvedURL, site.RefererFor(ref.ResolvedURL))
	if err == nil {
		return data, nil
	}
	if ref.OriginalURL == "" || ref.OriginalURL == ref.ResolvedURL || ctx.Err() != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return nil, models.NewPipelineError(models.ErrCodeDownload, "download failed", err)
	}

	slog.Debug("high-res download failed, trying original", "url", ref.ResolvedURL, "error", err)
	data, ferr := f.Fetch(ctx, ref.OriginalURL, site.RefererFor(ref.OriginalURL))
	if ferr != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return nil, models.NewPipelineError(models.ErrCodeDownload, "download failed", errors.Join(err, ferr))
	}
	metrics.DownloadsTotal.WithLabelValues("fallback").Inc()
	return data, nil
}

// Fetch downloads one image URL. Responses that are HTML, too small or too
// large are errors.
func (f *Fetcher) Fetch(ctx context.Context, target, referer string) ([]byte, error) {
	key := cache.Key(target, referer)
	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			metrics.DownloadsTotal.WithLabelValues("cached").Inc()
			return data, nil
		}
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("fetch: invalid URL %q", target)
	}
	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9,en;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch: HTTP %d for %s", resp.StatusCode, target)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/") {
		return nil, fmt.Errorf("fetch: unexpected content type %q for %s", ct, target)
	}

	limit := f.cfg.MaxBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch: %s exceeds %d bytes", target, limit)
	}
	if len(body) < f.cfg.MinBytes {
		return nil, fmt.Errorf("fetch: %s returned only %d bytes", target, len(body))
	}

	if f.cache != nil {
		f.cache.Set(key, body)
	}
	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	return body, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Limit(f.cfg.RequestsPerSecond)
		if f.cfg.RequestsPerSecond <= 0 {
			limit = rate.Inf
		}
		l = rate.NewLimiter(limit, max(f.cfg.Burst, 1))
		f.limiters[host] = l
	}
	return l
}
