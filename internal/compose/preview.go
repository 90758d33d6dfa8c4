package compose

import (
	"context"
	"image"

	"photobooth/internal/layout"
)

// Layer kinds of a preview document.
const (
	LayerFill  = "fill"
	LayerAsset = "asset"
	LayerPhoto = "photo"
	LayerText  = "text"
)

// Fit rules, named after CSS object-fit.
const (
	FitFill  = "fill"
	FitCover = "cover"
)

// Box is a rectangle in whole canvas pixels.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func boxOf(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Layer is one absolutely positioned element of the preview.
type Layer struct {
	Z     int    `json:"z"`
	Kind  string `json:"kind"`
	Color string `json:"color,omitempty"`
	Ref   string `json:"ref,omitempty"`
	Photo *int   `json:"photo,omitempty"`
	Fit   string `json:"fit,omitempty"`
	Box   *Box   `json:"box,omitempty"`
	Text  *Text  `json:"text,omitempty"`
}

// Document is the preview of a strip as stacked layers.
type Document struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Layers []Layer `json:"layers"`
}

// PreviewCanvas records draw calls as layers instead of painting. Nothing is
// loaded, so asset failures surface only on export.
type PreviewCanvas struct {
	doc Document
}

func NewPreviewCanvas() *PreviewCanvas {
	return &PreviewCanvas{}
}

// Document returns the recorded layers.
func (c *PreviewCanvas) Document() Document {
	return c.doc
}

func (c *PreviewCanvas) push(l Layer) {
	l.Z = len(c.doc.Layers)
	c.doc.Layers = append(c.doc.Layers, l)
}

func (c *PreviewCanvas) Begin(width, height int) {
	c.doc = Document{Width: width, Height: height, Layers: []Layer{}}
}

func (c *PreviewCanvas) FillColor(hex string) error {
	c.push(Layer{Kind: LayerFill, Color: hex, Box: &Box{W: c.doc.Width, H: c.doc.Height}})
	return nil
}

func (c *PreviewCanvas) DrawAsset(_ context.Context, ref string, r layout.Rect) error {
	b := boxOf(r.Pixels())
	c.push(Layer{Kind: LayerAsset, Ref: ref, Fit: FitFill, Box: &b})
	return nil
}

func (c *PreviewCanvas) DrawPhoto(index int, _ image.Image, r layout.Rect) error {
	b := boxOf(r.Pixels())
	i := index
	c.push(Layer{Kind: LayerPhoto, Photo: &i, Fit: FitCover, Box: &b})
	return nil
}

func (c *PreviewCanvas) DrawText(t Text) error {
	c.push(Layer{Kind: LayerText, Text: &t})
	return nil
}
