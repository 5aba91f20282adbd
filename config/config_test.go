package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Extractor.MaxScrolls != 50 {
		t.Errorf("MaxScrolls = %d, want 50", cfg.Extractor.MaxScrolls)
	}
	if cfg.Extractor.StabilityThreshold != 3 {
		t.Errorf("StabilityThreshold = %d, want 3", cfg.Extractor.StabilityThreshold)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Batch.Workers)
	}
	if cfg.Download.MinBytes != 500 {
		t.Errorf("MinBytes = %d, want 500", cfg.Download.MinBytes)
	}
	if diff := cmp.Diff([]string{"Font", "Media"}, cfg.Scraper.BlockedResourceTypes); diff != "" {
		t.Errorf("BlockedResourceTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GALLERYZIP_MAX_SCROLLS", "12")
	t.Setenv("GALLERYZIP_SCROLL_TIMEOUT", "2s")
	t.Setenv("GALLERYZIP_HEADLESS", "false")
	t.Setenv("GALLERYZIP_DOWNLOAD_RPS", "1.5")
	t.Setenv("GALLERYZIP_BLOCKED_RESOURCES", "Font, Stylesheet ,")
	t.Setenv("GALLERYZIP_API_KEYS", "k1,k2")

	cfg := Load()

	if cfg.Extractor.MaxScrolls != 12 {
		t.Errorf("MaxScrolls = %d, want 12", cfg.Extractor.MaxScrolls)
	}
	if cfg.Extractor.ScrollTimeout != 2*time.Second {
		t.Errorf("ScrollTimeout = %v, want 2s", cfg.Extractor.ScrollTimeout)
	}
	if cfg.Browser.Headless {
		t.Error("Headless = true, want false")
	}
	if cfg.Download.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v, want 1.5", cfg.Download.RequestsPerSecond)
	}
	if diff := cmp.Diff([]string{"Font", "Stylesheet"}, cfg.Scraper.BlockedResourceTypes); diff != "" {
		t.Errorf("BlockedResourceTypes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"k1", "k2"}, cfg.Auth.APIKeys); diff != "" {
		t.Errorf("APIKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GALLERYZIP_WORKERS", "many")
	t.Setenv("GALLERYZIP_JOB_TTL", "forever")

	cfg := Load()

	if cfg.Batch.Workers != 4 {
		t.Errorf("Workers = %d, want fallback 4", cfg.Batch.Workers)
	}
	if cfg.Batch.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v, want fallback 1h", cfg.Batch.JobTTL)
	}
}
