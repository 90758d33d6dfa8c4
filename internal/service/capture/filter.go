package capture

import (
	"errors"
	"fmt"
	"image"
	"photobooth/internal/imaging"

	"gocv.io/x/gocv"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Filter preset identifiers.
const (
	FilterNone    = "none"
	FilterBW      = "bw"
	FilterSepia   = "sepia"
	FilterVintage = "vintage"
)

// matOp writes a transformed copy of src into dst. Both are 8-bit BGR and
// every step saturates to 0..255.
type matOp func(src gocv.Mat, dst *gocv.Mat) error

// Filter is a chain of CSS filter functions applied in order.
type Filter struct {
	ID  string
	ops []matOp
}

// ParseFilter returns the preset named id. The empty string means none.
func ParseFilter(id string) (Filter, error) {
	switch id {
	case "", FilterNone:
		return Filter{ID: FilterNone}, nil
	case FilterBW:
		return Filter{ID: id, ops: []matOp{grayscale(1)}}, nil
	case FilterSepia:
		return Filter{ID: id, ops: []matOp{sepia(1)}}, nil
	case FilterVintage:
		return Filter{ID: id, ops: []matOp{sepia(0.5), contrast(1.2), brightness(1.1)}}, nil
	}
	return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
}

// CSS returns the equivalent CSS filter value for the browser preview.
func (f Filter) CSS() string {
	switch f.ID {
	case FilterBW:
		return "grayscale(100%)"
	case FilterSepia:
		return "sepia(100%)"
	case FilterVintage:
		return "sepia(50%) contrast(120%) brightness(110%)"
	}
	return "none"
}

// Identity reports whether the filter leaves pixels unchanged.
func (f Filter) Identity() bool {
	return len(f.ops) == 0
}

// Process mirrors img when asked, then runs the filter chain, all on one
// OpenCV Mat. img is not modified and frames are treated as opaque.
func Process(img image.Image, mirror bool, f Filter) (*image.RGBA, error) {
	mat, err := imaging.ToMat(img)
	if err != nil {
		return nil, err
	}
	defer func() { mat.Close() }()

	ops := f.ops
	if mirror {
		ops = append([]matOp{flip}, ops...)
	}
	for _, op := range ops {
		if mat, err = step(mat, op); err != nil {
			return nil, fmt.Errorf("failed to process frame: %w", err)
		}
	}
	return imaging.ToImage(mat)
}

// step runs op into a fresh Mat and closes src on success. On failure src
// is returned untouched so the caller still owns it.
func step(src gocv.Mat, op matOp) (gocv.Mat, error) {
	dst := gocv.NewMat()
	if err := op(src, &dst); err != nil {
		dst.Close()
		return src, err
	}
	src.Close()
	return dst, nil
}

func flip(src gocv.Mat, dst *gocv.Mat) error {
	return gocv.Flip(src, dst, 1)
}

// colorMatrix applies a 3x3 matrix given in RGB order to a BGR Mat.
func colorMatrix(m [9]float64) matOp {
	return func(src gocv.Mat, dst *gocv.Mat) error {
		tm := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
		defer tm.Close()
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				tm.SetFloatAt(row, col, float32(m[(2-row)*3+(2-col)]))
			}
		}
		return gocv.Transform(src, dst, tm)
	}
}

// grayscale follows the Filter Effects grayscale() matrix.
func grayscale(amount float64) matOp {
	a := 1 - amount
	return colorMatrix([9]float64{
		0.2126 + 0.7874*a, 0.7152 - 0.7152*a, 0.0722 - 0.0722*a,
		0.2126 - 0.2126*a, 0.7152 + 0.2848*a, 0.0722 - 0.0722*a,
		0.2126 - 0.2126*a, 0.7152 - 0.7152*a, 0.0722 + 0.9278*a,
	})
}

// sepia follows the Filter Effects sepia() matrix.
func sepia(amount float64) matOp {
	a := 1 - amount
	return colorMatrix([9]float64{
		0.393 + 0.607*a, 0.769 - 0.769*a, 0.189 - 0.189*a,
		0.349 - 0.349*a, 0.686 + 0.314*a, 0.168 - 0.168*a,
		0.272 - 0.272*a, 0.534 - 0.534*a, 0.131 + 0.869*a,
	})
}

// contrast and brightness are linear per channel; results below zero
// saturate to zero.
func contrast(amount float64) matOp {
	return linear(amount, 255*(0.5-0.5*amount))
}

func brightness(amount float64) matOp {
	return linear(amount, 0)
}

func linear(alpha, beta float64) matOp {
	return func(src gocv.Mat, dst *gocv.Mat) error {
		return src.ConvertToWithParams(dst, gocv.MatTypeCV8UC3, float32(alpha), float32(beta))
	}
}
