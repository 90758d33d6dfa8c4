// Package imaging moves frames between Go images and OpenCV Mats and
// handles JPEG coding through OpenCV.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

var ErrEmptyImage = errors.New("empty image")

// ToMat converts img to a BGR Mat. Alpha is dropped. The caller closes the
// returned Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	rgba := tightRGBA(img)
	if rgba.Rect.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}

	src, err := gocv.NewMatFromBytes(rgba.Rect.Dy(), rgba.Rect.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap image: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	if err := gocv.CvtColor(src, &dst, gocv.ColorRGBAToBGR); err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	return dst, nil
}

// ToImage converts a Mat back to an RGBA image with origin (0,0).
func ToImage(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat: %w", err)
	}
	return tightRGBA(img), nil
}

// tightRGBA returns img itself when it is an RGBA at the origin with no row
// padding, and an RGBA copy otherwise.
func tightRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// DecodeJPEG decodes a JPEG (or any format OpenCV reads) into RGBA.
func DecodeJPEG(data []byte) (*image.RGBA, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: %w", ErrEmptyImage)
	}
	return ToImage(mat)
}

// EncodeJPEG encodes img at quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	mat, err := ToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Dimensions reads the size of an image file on disk.
func Dimensions(path string) (width, height int, err error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return 0, 0, fmt.Errorf("failed to read image %s", path)
	}
	return mat.Cols(), mat.Rows(), nil
}
