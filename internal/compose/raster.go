package compose

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"photobooth/internal/assets"
	"photobooth/internal/layout"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Resolver loads an image by asset reference.
type Resolver interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Fonts holds the parsed regular and bold typefaces.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// LoadFonts parses the embedded Go fonts.
func LoadFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold}, nil
}

type faceKey struct {
	size float64
	bold bool
}

// RasterCanvas renders into an in-memory RGBA image. It is single use and
// not safe for concurrent draws.
type RasterCanvas struct {
	assets Resolver
	fonts  *Fonts
	faces  map[faceKey]font.Face
	img    *image.RGBA
}

// NewRasterCanvas creates a canvas that loads assets through r.
func NewRasterCanvas(r Resolver, fonts *Fonts) *RasterCanvas {
	return &RasterCanvas{
		assets: r,
		fonts:  fonts,
		faces:  make(map[faceKey]font.Face),
	}
}

// Image returns the rendered image, or nil before Begin.
func (c *RasterCanvas) Image() *image.RGBA {
	return c.img
}

func (c *RasterCanvas) Begin(width, height int) {
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (c *RasterCanvas) FillColor(hex string) error {
	col, err := assets.ParseHexColor(hex)
	if err != nil {
		return err
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	return nil
}

func (c *RasterCanvas) DrawAsset(ctx context.Context, ref string, r layout.Rect) error {
	src, err := c.assets.Load(ctx, ref)
	if err != nil {
		return err
	}
	xdraw.CatmullRom.Scale(c.img, r.Pixels(), src, src.Bounds(), draw.Over, nil)
	return nil
}

func (c *RasterCanvas) DrawPhoto(index int, photo image.Image, r layout.Rect) error {
	crop := CoverCrop(photo.Bounds(), r.W, r.H)
	xdraw.CatmullRom.Scale(c.img, r.Pixels(), photo, crop, draw.Over, nil)
	return nil
}

func (c *RasterCanvas) DrawText(t Text) error {
	col, err := assets.ParseHexColor(t.Color)
	if err != nil {
		return err
	}
	face, err := c.face(t.Size, t.Bold)
	if err != nil {
		return err
	}

	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	advance := d.MeasureString(t.Value)
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(t.X*64) - advance/2,
		Y: fixed.Int26_6(t.Y * 64),
	}
	d.DrawString(t.Value)
	return nil
}

func (c *RasterCanvas) face(size float64, bold bool) (font.Face, error) {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	if c.fonts == nil {
		return nil, fmt.Errorf("no fonts loaded")
	}

	src := c.fonts.regular
	if bold {
		src = c.fonts.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	c.faces[key] = f
	return f, nil
}

// Close releases the font faces.
func (c *RasterCanvas) Close() {
	for k, f := range c.faces {
		f.Close()
		delete(c.faces, k)
	}
}
