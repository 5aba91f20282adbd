package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/use-agent/galleryzip/models"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestProcessingFromRequest(t *testing.T) {
	got := processingFromRequest(callRequest(map[string]any{
		"preset":       "square",
		"enhance":      "auto",
		"logo_base64":   "iVBORw0=",
		"logo_outline":  true,
		"logo_scale":    0.3,
		"logo_offset_y": float64(-8),
	}))
	opacity := 1.0
	want := models.ProcessingParams{
		Preset:  "square",
		Enhance: "auto",
		Logo: &models.LogoParams{
			ImageBase64: "iVBORw0=",
			Opacity:     &opacity,
			Scale:       0.3,
			MarginPx:    24,
			Outline:     true,
			OffsetY:     -8,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if p := processingFromRequest(callRequest(map[string]any{"width": float64(640), "height": float64(480)})); p.Logo != nil || p.Width != 640 || p.Height != 480 {
		t.Errorf("params = %+v", p)
	}
}

func TestExtractGallery(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		var req models.ExtractRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxScrolls != 5 {
			t.Errorf("max_scrolls = %d, want 5", req.MaxScrolls)
		}
		json.NewEncoder(w).Encode(models.ExtractResponse{
			Success: true,
			Site:    "hotpepper",
			Total:   1,
			Images:  []models.ImageRef{{ResolvedURL: "https://imgfp.hotp.jp/a_L.jpg"}},
		})
	}))
	defer srv.Close()

	c := newClient(srv.URL+"/", "k")
	res, err := handleExtractGallery(c)(context.Background(), callRequest(map[string]any{
		"url":         "https://www.hotpepper.jp/strJ001234567/",
		"max_scrolls": float64(5),
	}))
	if err != nil || res.IsError {
		t.Fatalf("result = %+v, err %v", res, err)
	}
	if text := resultText(t, res); !strings.Contains(text, "[000] https://imgfp.hotp.jp/a_L.jpg") || !strings.Contains(text, "hotpepper") {
		t.Errorf("text = %q", text)
	}
	if gotKey != "k" {
		t.Errorf("api key = %q", gotKey)
	}
}

func TestExtractGallery_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ExtractResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeUnsupportedSite, Message: "no adapter"},
		})
	}))
	defer srv.Close()

	res, _ := handleExtractGallery(newClient(srv.URL, ""))(context.Background(), callRequest(map[string]any{"url": "https://example.com/"}))
	if !res.IsError || !strings.Contains(resultText(t, res), models.ErrCodeUnsupportedSite) {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessGallery_SavesArchive(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/batch", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.BatchResponse{ID: "batch-1", Status: models.JobProcessing})
	})
	mux.HandleFunc("GET /api/v1/batch/batch-1", func(w http.ResponseWriter, r *http.Request) {
		status := models.BatchStatusResponse{ID: "batch-1", Status: models.JobProcessing}
		if polls.Add(1) > 1 {
			status.Status = models.JobPartial
			status.ArchivePath = "/api/v1/batch/batch-1/archive"
			status.Manifest = &models.BatchManifest{
				TotalRequested: 2, TotalSucceeded: 1, TotalSkipped: 1,
				Items: []models.ManifestItem{
					{SequenceIndex: 0, Status: models.StatusSuccess, Filename: "seq_000.jpg"},
					{SequenceIndex: 1, Status: models.StatusSkipped, Code: models.ErrCodeDownload, SourceURL: "https://x/1.jpg"},
				},
			}
		}
		json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("GET /api/v1/batch/batch-1/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write([]byte("PK-archive"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(srv.URL, "")
	c.pollInterval = time.Millisecond
	dest := filepath.Join(t.TempDir(), "out.zip")

	res, err := handleProcessGallery(c)(context.Background(), callRequest(map[string]any{
		"url":         "https://tabelog.com/tokyo/A1301/A130101/13000001/",
		"output_path": dest,
	}))
	if err != nil || res.IsError {
		t.Fatalf("result = %+v, err %v", res, err)
	}
	text := resultText(t, res)
	for _, want := range []string{"partial", "1 of 2 photos processed", "skipped [001]", dest} {
		if !strings.Contains(text, want) {
			t.Errorf("text lacks %q:\n%s", want, text)
		}
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "PK-archive" {
		t.Errorf("archive = %q, err %v", data, err)
	}
}

func TestProcessGallery_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeConfiguration, Message: "unknown preset"},
		})
	}))
	defer srv.Close()

	res, _ := handleProcessGallery(newClient(srv.URL, ""))(context.Background(), callRequest(map[string]any{
		"url":    "https://tabelog.com/tokyo/A1301/A130101/13000001/",
		"preset": "poster",
	}))
	if !res.IsError || !strings.Contains(resultText(t, res), "unknown preset") {
		t.Errorf("result = %+v", res)
	}
}

func TestApiError(t *testing.T) {
	if got := apiError(502, []byte("<html>")); got != "API returned status 502" {
		t.Errorf("apiError = %q", got)
	}
}
