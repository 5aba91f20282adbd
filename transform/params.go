package transform

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/use-agent/galleryzip/models"
)

// DefaultPreset is used when a request names neither a preset nor a size.
const DefaultPreset = "portrait"

// ConfigFromParams turns the wire form of a processing configuration into a
// validated Config. An explicit width and height override the preset.
func ConfigFromParams(p models.ProcessingParams) (Config, error) {
	cfg := Config{
		Anchor:  Anchor(strings.ToLower(p.Anchor)),
		Enhance: Enhance(strings.ToLower(p.Enhance)),
	}

	switch {
	case p.Width != 0 || p.Height != 0:
		cfg.Width, cfg.Height = p.Width, p.Height
	default:
		name := strings.ToLower(p.Preset)
		if name == "" {
			name = DefaultPreset
		}
		size, ok := Presets[name]
		if !ok {
			return Config{}, configError(fmt.Sprintf("unknown preset %q", p.Preset))
		}
		cfg.Width, cfg.Height = size.Width, size.Height
	}

	if p.Logo != nil {
		data, err := base64.StdEncoding.DecodeString(stripDataURI(p.Logo.ImageBase64))
		if err != nil {
			return Config{}, models.NewPipelineError(models.ErrCodeConfiguration, "logo image is not valid base64", err)
		}
		opacity := 1.0
		if p.Logo.Opacity != nil {
			opacity = *p.Logo.Opacity
		}
		cfg.Logo = &Logo{
			Image:    data,
			Position: Position(strings.ToLower(p.Logo.Position)),
			Opacity:  opacity,
			Scale:    p.Logo.Scale,
			MarginPx: p.Logo.MarginPx,
			XPercent: p.Logo.XPercent,
			YPercent: p.Logo.YPercent,
			OffsetX:  p.Logo.OffsetX,
			OffsetY:  p.Logo.OffsetY,
			Outline:  p.Logo.Outline,
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stripDataURI drops a "data:image/png;base64," prefix.
func stripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
