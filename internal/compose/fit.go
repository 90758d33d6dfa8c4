package compose

import (
	"image"
	"math"
)

// CoverCrop returns the centred region of src whose aspect ratio matches a
// w x h box. Scaling that region to the box fills it without distortion.
func CoverCrop(src image.Rectangle, w, h float64) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	if sw <= 0 || sh <= 0 || w <= 0 || h <= 0 {
		return src
	}

	boxRatio := w / h
	srcRatio := sw / sh

	cw, ch := sw, sh
	if srcRatio > boxRatio {
		cw = sh * boxRatio
	} else {
		ch = sw / boxRatio
	}

	x0 := src.Min.X + int(math.Round((sw-cw)/2))
	y0 := src.Min.Y + int(math.Round((sh-ch)/2))
	return image.Rect(x0, y0, x0+int(math.Round(cw)), y0+int(math.Round(ch)))
}
