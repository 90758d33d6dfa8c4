// Package layout holds the strip layout catalog and the geometry shared by
// every renderer. Preview and export both place photos and stickers through
// the functions in this package, so their rectangles cannot drift apart.
package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrUnknownLayout is returned by Lookup for identifiers not in the catalog.
var ErrUnknownLayout = errors.New("unknown layout")

// Spec describes one strip layout in pixels.
type Spec struct {
	ID          string `json:"id"`
	Photos      int    `json:"photos"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PhotoWidth  int    `json:"photoWidth"`
	PhotoHeight int    `json:"photoHeight"`
	Padding     int    `json:"padding"`
	Gap         int    `json:"gap"`
}

// One table for preview and export.
var catalog = []Spec{
	{ID: "2x6", Photos: 2, Width: 400, Height: 770, PhotoWidth: 360, PhotoHeight: 300, Padding: 20, Gap: 20},
	{ID: "3x4", Photos: 3, Width: 400, Height: 1250, PhotoWidth: 360, PhotoHeight: 360, Padding: 20, Gap: 20},
	{ID: "4x6", Photos: 4, Width: 400, Height: 1650, PhotoWidth: 360, PhotoHeight: 360, Padding: 20, Gap: 20},
}

// All returns the layouts in catalog order.
func All() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a layout by identifier.
func Lookup(id string) (Spec, error) {
	for _, s := range catalog {
		if s.ID == id {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: %q", ErrUnknownLayout, id)
}

// Rect is an unrounded rectangle in canvas pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Pixels rounds each edge half away from zero. This is the only rounding
// rule used when a rectangle becomes pixels.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

// Canvas is the full strip rectangle.
func (s Spec) Canvas() Rect {
	return Rect{W: float64(s.Width), H: float64(s.Height)}
}

// PhotoOrigin returns the top-left corner of photo i.
func (s Spec) PhotoOrigin(i int) (float64, float64) {
	y := float64(i*(s.PhotoHeight+s.Gap) + s.Padding)
	return float64(s.Padding), y
}

// PhotoRect returns the box photo i is drawn into.
func (s Spec) PhotoRect(i int) Rect {
	x, y := s.PhotoOrigin(i)
	return Rect{X: x, Y: y, W: float64(s.PhotoWidth), H: float64(s.PhotoHeight)}
}

// AnchoredRect places a w x h element centred on a point given as a
// percentage of photo i's box. Fixed and user stickers both use it.
func (s Spec) AnchoredRect(i int, xPct, yPct, w, h float64) Rect {
	ox, oy := s.PhotoOrigin(i)
	cx := ox + float64(s.PhotoWidth)*xPct/100
	cy := oy + float64(s.PhotoHeight)*yPct/100
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// ValidPhoto reports whether i addresses a photo slot of this layout.
func (s Spec) ValidPhoto(i int) bool {
	return i >= 0 && i < s.Photos
}
