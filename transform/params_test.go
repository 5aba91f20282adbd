package transform

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"testing"

	"github.com/use-agent/galleryzip/models"
)

func TestConfigFromParams(t *testing.T) {
	logo := base64.StdEncoding.EncodeToString(encodePNG(t, solid(10, 10, color.NRGBA{255, 0, 0, 255})))

	tests := []struct {
		name    string
		params  models.ProcessingParams
		wantW   int
		wantH   int
		wantErr bool
	}{
		{name: "default preset", params: models.ProcessingParams{}, wantW: 1080, wantH: 1350},
		{name: "named preset", params: models.ProcessingParams{Preset: "Landscape"}, wantW: 1024, wantH: 682},
		{name: "explicit size wins", params: models.ProcessingParams{Preset: "square", Width: 800, Height: 600}, wantW: 800, wantH: 600},
		{name: "unknown preset", params: models.ProcessingParams{Preset: "banner"}, wantErr: true},
		{name: "half size", params: models.ProcessingParams{Width: 800}, wantErr: true},
		{name: "bad anchor", params: models.ProcessingParams{Anchor: "left"}, wantErr: true},
		{
			name: "logo",
			params: models.ProcessingParams{Logo: &models.LogoParams{
				ImageBase64: "data:image/png;base64," + logo, Position: "TOP-LEFT", Opacity: ptr(0.5), Scale: 0.2,
			}},
			wantW: 1080, wantH: 1350,
		},
		{
			name:    "logo not base64",
			params:  models.ProcessingParams{Logo: &models.LogoParams{ImageBase64: "%%%", Scale: 0.2}},
			wantErr: true,
		},
		{
			name: "custom position",
			params: models.ProcessingParams{Logo: &models.LogoParams{
				ImageBase64: logo, Position: "custom", XPercent: 25, YPercent: 75, Scale: 0.2,
			}},
			wantW: 1080, wantH: 1350,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigFromParams(tt.params)
			if tt.wantErr {
				if !models.IsCode(err, models.ErrCodeConfiguration) {
					t.Fatalf("err = %v, want CONFIGURATION_INVALID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConfigFromParams: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestConfigFromParams_LogoFields(t *testing.T) {
	png := encodePNG(t, solid(10, 10, color.NRGBA{0, 0, 255, 255}))
	cfg, err := ConfigFromParams(models.ProcessingParams{Logo: &models.LogoParams{
		ImageBase64: base64.StdEncoding.EncodeToString(png),
		Position:    "Bottom-Left",
		Opacity:     ptr(0.8),
		Scale:       0.25,
		MarginPx:    12,
		OffsetX:     -4,
		OffsetY:     6,
		Outline:     true,
	}})
	if err != nil {
		t.Fatalf("ConfigFromParams: %v", err)
	}
	l := cfg.Logo
	if l.Position != BottomLeft || l.Opacity != 0.8 || l.Scale != 0.25 || l.MarginPx != 12 || !l.Outline || l.OffsetX != -4 || l.OffsetY != 6 {
		t.Errorf("logo = %+v", l)
	}
	if !bytes.Equal(l.Image, png) {
		t.Error("logo bytes were not decoded verbatim")
	}
}

func TestConfigFromParams_OpacityDefault(t *testing.T) {
	logo := base64.StdEncoding.EncodeToString(encodePNG(t, solid(10, 10, color.NRGBA{0, 255, 0, 255})))
	tests := []struct {
		name    string
		opacity *float64
		want    float64
	}{
		{name: "omitted", opacity: nil, want: 1},
		{name: "explicit zero", opacity: ptr(0.0), want: 0},
		{name: "explicit", opacity: ptr(0.3), want: 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigFromParams(models.ProcessingParams{Logo: &models.LogoParams{
				ImageBase64: logo, Opacity: tt.opacity, Scale: 0.2,
			}})
			if err != nil {
				t.Fatalf("ConfigFromParams: %v", err)
			}
			if cfg.Logo.Opacity != tt.want {
				t.Errorf("opacity = %v, want %v", cfg.Logo.Opacity, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
