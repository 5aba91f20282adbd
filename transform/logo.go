package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

var (
	outlineDark  = color.NRGBA{0, 0, 0, 255}
	outlineLight = color.NRGBA{255, 255, 255, 255}
)

// scaleLogo resizes logo to scale*canvasW wide, keeping its aspect ratio.
func scaleLogo(logo *image.NRGBA, canvasW int, scale float64) *image.NRGBA {
	b := logo.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return logo
	}
	w := max(int(math.Round(float64(canvasW)*scale)), 1)
	h := max(int(math.Round(float64(b.Dy())*float64(w)/float64(b.Dx()))), 1)
	return imaging.Resize(logo, w, h, imaging.Lanczos)
}

// outline surrounds the opaque parts of logo with a 1px dark ring and a 2px
// light ring outside it. The logo keeps its size; rings that would fall
// outside are cut off.
func outline(logo *image.NRGBA) *image.NRGBA {
	return stroke(stroke(logo, 1, outlineDark), 2, outlineLight)
}

// stroke draws c where the alpha channel dilated by radius exceeds the
// original alpha, underneath src.
func stroke(src *image.NRGBA, radius int, c color.NRGBA) *image.NRGBA {
	src = imaging.Clone(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	alpha := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha[y*w+x] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	dilated := dilate(alpha, w, h, radius)

	rgb := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*src.Stride + x*4
			o := y*out.Stride + x*4
			sa := float64(src.Pix[i+3]) / 255
			ba := float64(dilated[y*w+x]-alpha[y*w+x]) / 255

			oa := sa + ba*(1-sa)
			if oa == 0 {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				sc := float64(src.Pix[i+ch])
				out.Pix[o+ch] = uint8(math.Round((sc*sa + rgb[ch]*ba*(1-sa)) / oa))
			}
			out.Pix[o+3] = uint8(math.Round(oa * 255))
		}
	}
	return out
}

// dilate is a square-window max filter over an alpha plane.
func dilate(a []uint8, w, h, r int) []uint8 {
	tmp := make([]uint8, len(a))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(0, x-r); k <= min(w-1, x+r); k++ {
				m = max(m, a[y*w+k])
			}
			tmp[y*w+x] = m
		}
	}
	out := make([]uint8, len(a))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(0, y-r); k <= min(h-1, y+r); k++ {
				m = max(m, tmp[k*w+x])
			}
			out[y*w+x] = m
		}
	}
	return out
}
