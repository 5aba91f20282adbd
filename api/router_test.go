package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/galleryzip/api/handler"
	"github.com/use-agent/galleryzip/batch"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/models"
)

type stubExtractor struct{}

func (stubExtractor) ExtractGalleryWith(ctx context.Context, url string, opts gallery.Options) (*models.ExtractionResult, error) {
	return nil, models.NewPipelineError(models.ErrCodeEmptyGallery, "no photos", nil)
}

type stubPool struct{}

func (stubPool) Stats() models.PoolStats { return models.PoolStats{MaxPages: 4} }

func newTestRouter(t *testing.T, auth bool) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Auth:   config.AuthConfig{Enabled: auth, APIKeys: []string{"secret"}},
	}
	dl := batch.DownloadFunc(func(ctx context.Context, url string) ([]byte, error) { return nil, nil })
	batches := handler.NewBatches(ctx, stubExtractor{}, &batch.Orchestrator{}, dl, handler.BatchSettings{})
	return NewRouter(ctx, cfg, stubExtractor{}, batches, stubPool{}, time.Now())
}

func request(h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter(t, false)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodPost, "/api/v1/gallery/extract", `{"url":"https://tabelog.com/tokyo/A1301/A130101/13000001/"}`, http.StatusUnprocessableEntity},
		{http.MethodGet, "/api/v1/batch/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/batch/unknown/archive", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/batch", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := request(h, tt.method, tt.path, tt.body, ""); w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, false)
	request(h, http.MethodGet, "/api/v1/health", "", "")

	w := request(h, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "galleryzip_http_requests_total") {
		t.Error("metrics output lacks request counter")
	}
}

func TestRouter_AuthSkipsHealth(t *testing.T) {
	h := newTestRouter(t, true)

	if w := request(h, http.MethodGet, "/api/v1/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health without key: status = %d, want 200", w.Code)
	}
	if w := request(h, http.MethodGet, "/api/v1/batch/x", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("batch without key: status = %d, want 401", w.Code)
	}
	if w := request(h, http.MethodGet, "/api/v1/batch/x", "", "secret"); w.Code != http.StatusNotFound {
		t.Errorf("batch with key: status = %d, want 404", w.Code)
	}
}

func TestExtractOptions(t *testing.T) {
	got := ExtractOptions(config.ExtractorConfig{MaxScrolls: 9, StabilityThreshold: 2, ScrollTimeout: time.Second})
	if got.MaxScrolls != 9 || got.StabilityThreshold != 2 || got.ScrollTimeout != time.Second {
		t.Errorf("ExtractOptions = %+v", got)
	}
}
