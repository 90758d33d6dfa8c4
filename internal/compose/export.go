package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"photobooth/internal/imaging"
	"regexp"
	"strconv"
	"time"
)

// DefaultQuality is the JPEG quality used for exported strips.
const DefaultQuality = 95

// Export renders scene to a raster and encodes it as JPEG. Either the whole
// encoded strip is returned or an error; nothing is written anywhere.
func Export(ctx context.Context, scene Scene, r Resolver, fonts *Fonts, quality int) ([]byte, error) {
	canvas := NewRasterCanvas(r, fonts)
	defer canvas.Close()

	if err := Render(ctx, canvas, scene); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, canvas.Image(), quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEG writes img as JPEG at the given quality (1-100).
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	data, err := imaging.EncodeJPEG(img, quality)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write jpeg: %w", err)
	}
	return nil
}

// Filename builds "<prefix>-<layout>-<epochMillis>.jpg".
func Filename(prefix, layoutID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d.jpg", prefix, layoutID, at.UnixMilli())
}

var filenamePattern = regexp.MustCompile(`^([A-Za-z0-9_]+)-([0-9]+x[0-9]+)-([0-9]+)\.jpg$`)

// ParseFilename reverses Filename.
func ParseFilename(name string) (prefix, layoutID string, at time.Time, err error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", time.Time{}, fmt.Errorf("invalid strip filename: %s", name)
	}
	millis, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid timestamp in %s: %w", name, err)
	}
	return m[1], m[2], time.UnixMilli(millis), nil
}
