package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Extractor ExtractorConfig
	Batch     BatchConfig
	Download  DownloadConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Log       LogConfig
	Webhook   WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent extractions).
	MaxPages int // default: 4

	// DefaultProxy is the default proxy URL for all page loads.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool // default: true
}

// ScraperConfig controls how a gallery page is loaded and scrolled.
type ScraperConfig struct {
	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 60s

	// RenderSettle is the pause after the first DOM-stable point so that
	// above-the-fold lazy images get their sources.
	RenderSettle time.Duration // default: 3s

	// ScrollSettle is the pause after each scroll before measuring.
	ScrollSettle time.Duration // default: 1500ms

	// AcceptLanguage is sent with every page request.
	AcceptLanguage string // default: "ja-JP,ja;q=0.9,en;q=0.8"

	// BlockedResourceTypes lists resource types to block while rendering.
	// Images stay unblocked: some lazy loaders only swap sources after load.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// ExtractorConfig controls the scroll-and-collect loop.
type ExtractorConfig struct {
	// MaxScrolls caps the number of scroll attempts per extraction.
	MaxScrolls int // default: 50

	// StabilityThreshold is the number of consecutive scrolls without
	// progress that ends an extraction.
	StabilityThreshold int // default: 3

	// ScrollTimeout bounds one scroll-and-wait cycle.
	ScrollTimeout time.Duration // default: 10s

	// Timeout bounds the whole extraction including navigation.
	Timeout time.Duration // default: 3m
}

// BatchConfig controls download-and-transform batches.
type BatchConfig struct {
	// Workers is the size of the download/transform worker pool.
	Workers int // default: 4

	// MaxImages caps the number of images accepted in one batch.
	MaxImages int // default: 300

	// JobTTL is how long finished jobs and their archives are kept.
	JobTTL time.Duration // default: 1h
}

// DownloadConfig controls the image download collaborator.
type DownloadConfig struct {
	// Timeout is the per-image request deadline.
	Timeout time.Duration // default: 20s

	// MaxBytes caps the size of one downloaded image.
	MaxBytes int64 // default: 20 MiB

	// MinBytes is the size under which a payload is treated as a failed
	// download (error pages, tracking pixels).
	MinBytes int // default: 500

	// RequestsPerSecond is the sustained rate per image host.
	RequestsPerSecond float64 // default: 8

	// Burst is the maximum burst size per image host.
	Burst int // default: 8

	// CacheEntries is the maximum number of cached downloads; 0 disables.
	CacheEntries int // default: 256

	// CacheTTL is how long a cached download stays valid.
	CacheTTL time.Duration // default: 10m

	// Proxy overrides the proxy used for downloads.
	Proxy string
}

// RateLimitConfig controls per-client API rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// AuthConfig controls API-key authentication.
type AuthConfig struct {
	// Enabled turns on the X-API-Key / Bearer check for /api/v1 routes
	// other than health.
	Enabled bool // default: false

	// APIKeys is the accepted key set.
	APIKeys []string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// Secret signs payloads when a request does not bring its own.
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("GALLERYZIP_HOST", "0.0.0.0"),
			Port: envIntOr("GALLERYZIP_PORT", 8080),
			Mode: envOr("GALLERYZIP_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("GALLERYZIP_HEADLESS", true),
			MaxPages:     envIntOr("GALLERYZIP_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("GALLERYZIP_PROXY"),
			NoSandbox:    envBoolOr("GALLERYZIP_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("GALLERYZIP_BROWSER_BIN"),
			Stealth:      envBoolOr("GALLERYZIP_STEALTH", true),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("GALLERYZIP_NAV_TIMEOUT", 60*time.Second),
			RenderSettle:      envDurationOr("GALLERYZIP_RENDER_SETTLE", 3*time.Second),
			ScrollSettle:      envDurationOr("GALLERYZIP_SCROLL_SETTLE", 1500*time.Millisecond),
			AcceptLanguage:    envOr("GALLERYZIP_ACCEPT_LANGUAGE", "ja-JP,ja;q=0.9,en;q=0.8"),
			BlockedResourceTypes: envSliceOr("GALLERYZIP_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Extractor: ExtractorConfig{
			MaxScrolls:         envIntOr("GALLERYZIP_MAX_SCROLLS", 50),
			StabilityThreshold: envIntOr("GALLERYZIP_STABILITY_THRESHOLD", 3),
			ScrollTimeout:      envDurationOr("GALLERYZIP_SCROLL_TIMEOUT", 10*time.Second),
			Timeout:            envDurationOr("GALLERYZIP_EXTRACT_TIMEOUT", 3*time.Minute),
		},
		Batch: BatchConfig{
			Workers:   envIntOr("GALLERYZIP_WORKERS", 4),
			MaxImages: envIntOr("GALLERYZIP_MAX_IMAGES", 300),
			JobTTL:    envDurationOr("GALLERYZIP_JOB_TTL", time.Hour),
		},
		Download: DownloadConfig{
			Timeout:           envDurationOr("GALLERYZIP_DOWNLOAD_TIMEOUT", 20*time.Second),
			MaxBytes:          int64(envIntOr("GALLERYZIP_DOWNLOAD_MAX_BYTES", 20<<20)),
			MinBytes:          envIntOr("GALLERYZIP_DOWNLOAD_MIN_BYTES", 500),
			RequestsPerSecond: envFloatOr("GALLERYZIP_DOWNLOAD_RPS", 8),
			Burst:             envIntOr("GALLERYZIP_DOWNLOAD_BURST", 8),
			CacheEntries:      envIntOr("GALLERYZIP_CACHE_ENTRIES", 256),
			CacheTTL:          envDurationOr("GALLERYZIP_CACHE_TTL", 10*time.Minute),
			Proxy:             os.Getenv("GALLERYZIP_DOWNLOAD_PROXY"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("GALLERYZIP_RATE_RPS", 2.0),
			Burst:             envIntOr("GALLERYZIP_RATE_BURST", 5),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("GALLERYZIP_AUTH_ENABLED", false),
			APIKeys: envSliceOr("GALLERYZIP_API_KEYS", nil),
		},
		Log: LogConfig{
			Level:  envOr("GALLERYZIP_LOG_LEVEL", "info"),
			Format: envOr("GALLERYZIP_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("GALLERYZIP_WEBHOOK_SECRET"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
