package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	mobileBrightness = 1.1
	mobileContrast   = 10
	highlightReduce  = 0.05
)

// enhanceForMobile brightens and adds contrast, then pulls highlights down.
// Brightening scales each channel so blacks stay black.
func enhanceForMobile(img *image.NRGBA) *image.NRGBA {
	img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: brightnessLUT[c.R], G: brightnessLUT[c.G], B: brightnessLUT[c.B], A: c.A}
	})
	img = imaging.AdjustContrast(img, mobileContrast)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: highlightLUT[c.R], G: highlightLUT[c.G], B: highlightLUT[c.B], A: c.A}
	})
}

var brightnessLUT = func() [256]uint8 {
	var lut [256]uint8
	for x := range 256 {
		lut[x] = uint8(min(255, math.Round(float64(x)*mobileBrightness)))
	}
	return lut
}()

// highlightLUT reduces values above mid-grey linearly, up to
// highlightReduce*255 at white.
var highlightLUT = func() [256]uint8 {
	var lut [256]uint8
	for x := range 256 {
		if x <= 128 {
			lut[x] = uint8(x)
			continue
		}
		reduction := int(255 * highlightReduce * float64(x-128) / 127)
		lut[x] = uint8(max(0, x-reduction))
	}
	return lut
}()
