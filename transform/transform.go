// Package transform turns one downloaded photo into a normalized output
// image: crop to the target aspect, resize, optional colour correction and
// logo, JPEG encode. Output is a pure function of input bytes and Config.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/use-agent/galleryzip/models"

	_ "golang.org/x/image/webp"
)

const (
	// Quality is the JPEG quality of every output image.
	Quality = 90

	// MaxSourcePixels rejects sources whose decoded size would not fit
	// comfortably in memory.
	MaxSourcePixels = 64 << 20
)

// Ext is the extension of encoded outputs.
const Ext = "jpg"

// Transformer applies one validated Config. It is safe for concurrent use.
type Transformer struct {
	cfg  Config
	logo *image.NRGBA
	rect image.Rectangle
}

// New validates cfg and prepares the logo. Any invalid field fails with a
// CONFIGURATION_INVALID PipelineError.
func New(cfg Config) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Transformer{cfg: cfg}
	if cfg.Logo == nil {
		return t, nil
	}

	logo, err := decodeLogo(cfg.Logo.Image)
	if err != nil {
		return nil, err
	}
	logo = scaleLogo(logo, cfg.Width, cfg.Logo.Scale)
	if cfg.Logo.Outline {
		logo = outline(logo)
	}
	t.logo = logo
	t.rect = LogoRect(cfg.Width, cfg.Height, logo.Bounds().Dx(), logo.Bounds().Dy(), cfg.Logo.placement())
	return t, nil
}

func (t *Transformer) Config() Config { return t.cfg }

// Transform decodes data and produces the encoded output image. A source that
// cannot be decoded fails with IMAGE_DECODE_FAILED.
func (t *Transformer) Transform(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	canvas := t.fit(img)
	if t.cfg.enhanceMobile() {
		canvas = enhanceForMobile(canvas)
	}
	if t.logo != nil && !t.rect.Empty() {
		canvas = imaging.Overlay(canvas, t.logo, t.rect.Min, t.cfg.Logo.Opacity)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to encode output image", err)
	}
	return buf.Bytes(), nil
}

// fit crops img to the target aspect and resizes it to exactly
// Width x Height. A source smaller than the target is enlarged by that same
// single resize, so the crop is taken in source coordinates.
func (t *Transformer) fit(img image.Image) *image.NRGBA {
	b := img.Bounds()
	r := CropRect(b.Dx(), b.Dy(), t.cfg.Width, t.cfg.Height, t.cfg.anchor()).Add(b.Min)
	return imaging.Resize(imaging.Crop(img, r), t.cfg.Width, t.cfg.Height, imaging.Lanczos)
}

func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeImageDecode, "unrecognized image data", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, models.NewPipelineError(models.ErrCodeImageDecode,
			fmt.Sprintf("source size %dx%d not accepted", cfg.Width, cfg.Height), nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeImageDecode, "failed to decode image", err)
	}
	return flatten(img), nil
}

// flatten composites images with transparency onto white.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Point{}, 1)
}
