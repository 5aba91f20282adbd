package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.String(http.StatusOK, c.GetString(identityKey)) }

func serve(r *gin.Engine, header, value, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error == nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", Auth([]string{"k1", "", "k2"}), ok)

	tests := []struct {
		name, header, value string
		want                int
	}{
		{"x-api-key", "X-API-Key", "k1", http.StatusOK},
		{"bearer", "Authorization", "Bearer k2", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", "nope", http.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		w := serve(r, tt.header, tt.value, "")
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
			continue
		}
		if tt.want == http.StatusUnauthorized && errorCode(t, w) != models.ErrCodeUnauthorized {
			t.Errorf("%s: wrong error code", tt.name)
		}
	}
}

func TestAuth_QueryKey(t *testing.T) {
	r := gin.New()
	h := Auth([]string{"k1"})
	r.GET("/x", h, ok)
	r.POST("/x", h, ok)

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/x?api_key=k1", http.StatusOK},
		{http.MethodGet, "/x?api_key=k2", http.StatusUnauthorized},
		{http.MethodPost, "/x?api_key=k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, w.Code, tt.want)
		}
	}
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/x", Auth([]string{""}), ok)
	if w := serve(r, "", "", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit_PerIdentity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.GET("/x", RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}), ok)

	for i := range 2 {
		if w := serve(r, "", "", "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	w := serve(r, "", "", "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", w.Code)
	}
	if errorCode(t, w) != models.ErrCodeRateLimited {
		t.Error("wrong error code")
	}
	if ra := w.Header().Get("Retry-After"); ra == "" || ra == "0" {
		t.Errorf("Retry-After = %q", ra)
	}

	if w := serve(r, "", "", "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", w.Code)
	}
}

func TestRateLimit_Unlimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.GET("/x", RateLimit(ctx, config.RateLimitConfig{}), ok)
	for i := range 50 {
		if w := serve(r, "", "", "10.0.0.1:1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
}

func TestBuckets_Sweep(t *testing.T) {
	b := newBuckets(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	b.get("old", now.Add(-2*limiterIdleTTL))
	b.get("fresh", now)

	b.sweep(now)

	if _, ok := b.byID["old"]; ok {
		t.Error("idle bucket not evicted")
	}
	if _, ok := b.byID["fresh"]; !ok {
		t.Error("fresh bucket evicted")
	}
}

func TestMetrics_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/x", ok)
	if w := serve(r, "", "", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if w := serve(r, "", "", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
