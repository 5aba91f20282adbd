package transform

import "image"

// CropRect returns the largest rectangle inside a srcW x srcH image with the
// aspect ratio w:h. The crop is flush to the anchored edge and centered on
// the other axis.
func CropRect(srcW, srcH, w, h int, anchor Anchor) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || w <= 0 || h <= 0 {
		return image.Rectangle{}
	}

	// Source wider than target: keep full height, center horizontally.
	if srcW*h > srcH*w {
		cropW := max(min((srcH*w+h/2)/h, srcW), 1)
		x0 := (srcW - cropW) / 2
		return image.Rect(x0, 0, x0+cropW, srcH)
	}

	cropH := max(min((srcW*h+w/2)/w, srcH), 1)
	var y0 int
	switch anchor {
	case AnchorTop:
		y0 = 0
	case AnchorBottom:
		y0 = srcH - cropH
	default:
		y0 = (srcH - cropH) / 2
	}
	return image.Rect(0, y0, srcW, y0+cropH)
}

// positionFactors maps a Position to horizontal and vertical slots
// (0 = start, 1 = middle, 2 = end). The empty position is bottom-right.
func positionFactors(p Position) (hx, vy int, ok bool) {
	switch p {
	case TopLeft:
		return 0, 0, true
	case Top:
		return 1, 0, true
	case TopRight:
		return 2, 0, true
	case Left:
		return 0, 1, true
	case Center:
		return 1, 1, true
	case Right:
		return 2, 1, true
	case BottomLeft:
		return 0, 2, true
	case Bottom:
		return 1, 2, true
	case BottomRight, "":
		return 2, 2, true
	}
	return 0, 0, false
}

// Placement says where a logo goes on the canvas.
type Placement struct {
	Position Position

	// MarginPx keeps named positions away from the edges. Custom ignores it.
	MarginPx int

	// XPercent and YPercent place a Custom logo within the free space,
	// 0..100 with 0 at the left/top edge.
	XPercent float64
	YPercent float64

	// OffsetX and OffsetY shift the logo after placement; right and down
	// are positive.
	OffsetX int
	OffsetY int
}

// LogoRect places a logoW x logoH logo on a canvasW x canvasH canvas. The
// margin is kept where it fits; the result never extends past the canvas.
func LogoRect(canvasW, canvasH, logoW, logoH int, p Placement) image.Rectangle {
	var x, y int
	if p.Position == Custom {
		x = int(float64(canvasW-logoW) * p.XPercent / 100)
		y = int(float64(canvasH-logoH) * p.YPercent / 100)
	} else {
		hx, vy, ok := positionFactors(p.Position)
		if !ok {
			hx, vy = 2, 2
		}
		x = slot(hx, canvasW, logoW, p.MarginPx)
		y = slot(vy, canvasH, logoH, p.MarginPx)
	}
	x = clampSlot(x+p.OffsetX, canvasW, logoW)
	y = clampSlot(y+p.OffsetY, canvasH, logoH)
	r := image.Rect(x, y, x+logoW, y+logoH)
	return r.Intersect(image.Rect(0, 0, canvasW, canvasH))
}

func slot(s, canvas, size, margin int) int {
	switch s {
	case 0:
		return margin
	case 1:
		return (canvas - size) / 2
	default:
		return canvas - size - margin
	}
}

// clampSlot keeps [p, p+size) on a canvas-wide axis, preferring the start
// edge when the logo is larger than the canvas.
func clampSlot(p, canvas, size int) int {
	if p+size > canvas {
		p = canvas - size
	}
	return max(p, 0)
}
