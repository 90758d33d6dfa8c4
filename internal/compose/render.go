// Package compose renders a strip. One algorithm, Render, drives any Canvas:
// RasterCanvas produces the exported image and PreviewCanvas produces the
// positioned layers the browser displays. Both receive the same rectangles.
package compose

import (
	"context"
	"image"
	"time"

	"photobooth/internal/layout"
	"photobooth/internal/model"
)

// Footer text geometry, measured from the bottom edge to the baseline.
const (
	DateBaselineOffset = 30
	DateFontSize       = 14
	LogoBaselineOffset = 10
	LogoFontSize       = 24

	// DateFormat renders like a US short locale date, e.g. 1/2/2006.
	DateFormat = "1/2/2006"
)

const (
	textOnTemplate = "#ffffff"
	textOnColor    = "#000000"
)

// Scene is everything a strip is rendered from. Callers hand in a snapshot;
// Render never mutates it.
type Scene struct {
	Layout     layout.Spec
	Photos     []image.Image
	Background model.Background
	Stickers   map[int][]model.UserSticker
	Overlays   model.Overlays
	Wordmark   string
	Now        time.Time
}

// Text is a single line centred horizontally on X with its baseline at Y.
type Text struct {
	Value string  `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Bold  bool    `json:"bold"`
	Color string  `json:"color"`
}

// Canvas is a render target. Calls arrive in paint order; each draw
// completes before the next one starts.
type Canvas interface {
	Begin(width, height int)
	FillColor(hex string) error
	// DrawAsset stretches the referenced image over r.
	DrawAsset(ctx context.Context, ref string, r layout.Rect) error
	// DrawPhoto cover-fits captured photo index into r.
	DrawPhoto(index int, photo image.Image, r layout.Rect) error
	DrawText(t Text) error
}

// Render paints scene onto c: background, then per photo the photo, the
// template's fixed stickers and the user stickers in insertion order, then
// the footer text. The first failing draw aborts the render.
func Render(ctx context.Context, c Canvas, scene Scene) error {
	spec := scene.Layout
	c.Begin(spec.Width, spec.Height)

	tpl, hasTemplate := scene.Background.Template()
	if hasTemplate {
		if err := c.DrawAsset(ctx, tpl.Path, spec.Canvas()); err != nil {
			return err
		}
	} else {
		hex, _ := scene.Background.Color()
		if err := c.FillColor(hex); err != nil {
			return err
		}
	}

	for i, photo := range scene.Photos {
		if i >= spec.Photos {
			break
		}
		if photo != nil {
			if err := c.DrawPhoto(i, photo, spec.PhotoRect(i)); err != nil {
				return err
			}
		}

		if hasTemplate {
			for _, fs := range tpl.FixedStickers {
				r := spec.AnchoredRect(i, fs.X, fs.Y, fs.Width, fs.Height)
				if err := c.DrawAsset(ctx, fs.Image, r); err != nil {
					return err
				}
			}
		}

		for _, st := range scene.Stickers[i] {
			r := spec.AnchoredRect(i, st.X, st.Y, st.Width, st.Height)
			if err := c.DrawAsset(ctx, st.Image, r); err != nil {
				return err
			}
		}
	}

	color := textOnColor
	if hasTemplate {
		color = textOnTemplate
	}
	w, h := float64(spec.Width), float64(spec.Height)

	if scene.Overlays.ShowDate {
		err := c.DrawText(Text{
			Value: scene.Now.Format(DateFormat),
			X:     w / 2,
			Y:     h - DateBaselineOffset,
			Size:  DateFontSize,
			Color: color,
		})
		if err != nil {
			return err
		}
	}

	if scene.Overlays.ShowLogo && scene.Wordmark != "" {
		err := c.DrawText(Text{
			Value: scene.Wordmark,
			X:     w / 2,
			Y:     h - LogoBaselineOffset,
			Size:  LogoFontSize,
			Bold:  true,
			Color: color,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
