package transform

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/use-agent/galleryzip/models"
)

// MaxDimension caps target width and height.
const MaxDimension = 8192

// Anchor selects which part of the source is kept when cropping.
type Anchor string

const (
	AnchorCenter Anchor = "center"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
)

// Enhance selects the colour correction applied after resizing.
type Enhance string

const (
	EnhanceNone   Enhance = "none"
	EnhanceMobile Enhance = "mobile"
	// EnhanceAuto applies the mobile correction to portrait targets only.
	EnhanceAuto Enhance = "auto"
)

// Position places the logo on the canvas.
type Position string

const (
	TopLeft     Position = "top-left"
	Top         Position = "top"
	TopRight    Position = "top-right"
	Left        Position = "left"
	Center      Position = "center"
	Right       Position = "right"
	BottomLeft  Position = "bottom-left"
	Bottom      Position = "bottom"
	BottomRight Position = "bottom-right"

	// Custom places the logo by Logo.XPercent and Logo.YPercent.
	Custom Position = "custom"
)

// Config is the processing configuration shared by every image of a batch.
type Config struct {
	Width   int
	Height  int
	Anchor  Anchor
	Enhance Enhance
	Logo    *Logo
}

// Logo is an optional watermark.
type Logo struct {
	// Image is the encoded logo (PNG with alpha recommended).
	Image []byte

	Position Position

	// Opacity multiplies the logo's own alpha, 0..1.
	Opacity float64

	// Scale is the logo width as a fraction of the canvas width, (0, 1].
	Scale float64

	MarginPx int

	// XPercent and YPercent position a Custom logo, 0..100.
	XPercent float64
	YPercent float64

	// OffsetX and OffsetY nudge the placed logo in pixels.
	OffsetX int
	OffsetY int

	// Outline draws a thin dark and light stroke around the logo shape.
	Outline bool
}

// Size is a named output size.
type Size struct {
	Width  int
	Height int
}

// Presets are the named output sizes.
var Presets = map[string]Size{
	"portrait":  {1080, 1350},
	"landscape": {1024, 682},
	"square":    {1080, 1080},
}

// Validate checks cfg without decoding the logo.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Width > MaxDimension || c.Height > MaxDimension {
		return configError(fmt.Sprintf("target size %dx%d out of range 1..%d", c.Width, c.Height, MaxDimension))
	}
	switch c.Anchor {
	case "", AnchorCenter, AnchorTop, AnchorBottom:
	default:
		return configError(fmt.Sprintf("unknown crop anchor %q", c.Anchor))
	}
	switch c.Enhance {
	case "", EnhanceNone, EnhanceMobile, EnhanceAuto:
	default:
		return configError(fmt.Sprintf("unknown enhance mode %q", c.Enhance))
	}
	if c.Logo == nil {
		return nil
	}

	l := c.Logo
	if len(l.Image) == 0 {
		return configError("logo image is empty")
	}
	if _, _, ok := positionFactors(l.Position); !ok && l.Position != Custom {
		return configError(fmt.Sprintf("unknown logo position %q", l.Position))
	}
	if !inPercent(l.XPercent) || !inPercent(l.YPercent) {
		return configError(fmt.Sprintf("logo position %v%%, %v%% out of range 0..100", l.XPercent, l.YPercent))
	}
	if math.IsNaN(l.Opacity) || l.Opacity < 0 || l.Opacity > 1 {
		return configError(fmt.Sprintf("logo opacity %v out of range 0..1", l.Opacity))
	}
	if math.IsNaN(l.Scale) || l.Scale <= 0 || l.Scale > 1 {
		return configError(fmt.Sprintf("logo scale %v out of range (0, 1]", l.Scale))
	}
	if l.MarginPx < 0 {
		return configError(fmt.Sprintf("logo margin %d is negative", l.MarginPx))
	}
	return nil
}

func inPercent(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

func (l *Logo) placement() Placement {
	return Placement{
		Position: l.Position,
		MarginPx: l.MarginPx,
		XPercent: l.XPercent,
		YPercent: l.YPercent,
		OffsetX:  l.OffsetX,
		OffsetY:  l.OffsetY,
	}
}

func (c Config) anchor() Anchor {
	if c.Anchor == "" {
		return AnchorCenter
	}
	return c.Anchor
}

func (c Config) enhanceMobile() bool {
	switch c.Enhance {
	case EnhanceMobile:
		return true
	case EnhanceAuto:
		return c.Height > c.Width
	}
	return false
}

func decodeLogo(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeConfiguration, "logo image is unreadable", err)
	}
	return imaging.Clone(img), nil
}

func configError(msg string) error {
	return models.NewPipelineError(models.ErrCodeConfiguration, msg, nil)
}
