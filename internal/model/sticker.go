package model

// UserSticker is a decoration placed by the user on one photo.
// X and Y are percentages of the photo box; Width and Height are pixels.
type UserSticker struct {
	Image  string  `json:"image"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FixedSticker is a decoration bound to a background template. It is drawn
// at the same anchor on every photo of the strip.
type FixedSticker struct {
	Image  string  `json:"image" yaml:"image"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Template is a background image with its fixed stickers.
type Template struct {
	Name          string         `json:"name" yaml:"name"`
	Path          string         `json:"path" yaml:"path"`
	FixedStickers []FixedSticker `json:"fixedStickers" yaml:"fixedStickers"`
}

// StickerRef addresses one user sticker.
type StickerRef struct {
	Photo int `json:"photo"`
	Index int `json:"index"`
}

// Overlays toggles the footer text of a strip.
type Overlays struct {
	ShowDate bool `json:"showDate"`
	ShowLogo bool `json:"showLogo"`
}

// DefaultOverlays: no date, logo on.
func DefaultOverlays() Overlays {
	return Overlays{ShowDate: false, ShowLogo: true}
}

// CloneStickers deep copies a per-photo sticker map.
func CloneStickers(in map[int][]UserSticker) map[int][]UserSticker {
	out := make(map[int][]UserSticker, len(in))
	for photo, list := range in {
		cp := make([]UserSticker, len(list))
		copy(cp, list)
		out[photo] = cp
	}
	return out
}
