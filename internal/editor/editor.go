// Package editor holds the state of one strip being decorated: user stickers
// per photo, the selection, the active drag, the background and the footer
// toggles. A Session is not safe for concurrent use; callers serialise
// access.
package editor

import (
	"errors"
	"fmt"
	"math"

	"photobooth/internal/assets"
	"photobooth/internal/layout"
	"photobooth/internal/model"
)

var (
	ErrPhotoOutOfRange = errors.New("photo index out of range")
	ErrNoSticker       = errors.New("sticker not found")
	ErrDragActive      = errors.New("another drag is in progress")
	ErrInvalidDragMode = errors.New("invalid drag mode")
	ErrInvalidColor    = errors.New("invalid colour")
)

// Placement bounds. Percentages are of the photo box, sizes are pixels.
const (
	MinPosition = 5.0
	MaxPosition = 95.0
	MinSize     = 30.0
	MaxSize     = 200.0

	DefaultX      = 30.0
	DefaultY      = 30.0
	DefaultWidth  = 50.0
	DefaultHeight = 50.0
)

// DragMode selects what a drag changes.
type DragMode string

const (
	DragMove   DragMode = "move"
	DragResize DragMode = "resize"
)

// ParseDragMode validates a mode string.
func ParseDragMode(s string) (DragMode, error) {
	switch DragMode(s) {
	case DragMove, DragResize:
		return DragMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDragMode, s)
}

// Size is the on-screen size of the element the pointer moves over.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type dragState struct {
	ref   model.StickerRef
	mode  DragMode
	lastX float64
	lastY float64
	ratio float64 // height/width when the drag began
}

// Session is the editing state of one strip.
type Session struct {
	layout     layout.Spec
	stickers   map[int][]model.UserSticker
	selected   *model.StickerRef
	drag       *dragState
	background model.Background
	lastColor  string
	overlays   model.Overlays
}

// NewSession starts an empty edit session for spec.
func NewSession(spec layout.Spec) *Session {
	s := &Session{layout: spec}
	s.Reset()
	return s
}

// Reset returns the session to its initial state.
func (s *Session) Reset() {
	s.stickers = make(map[int][]model.UserSticker)
	s.selected = nil
	s.drag = nil
	s.lastColor = model.DefaultColor
	s.background = model.SolidColor(model.DefaultColor)
	s.overlays = model.DefaultOverlays()
}

// Layout returns the layout being edited.
func (s *Session) Layout() layout.Spec {
	return s.layout
}

func (s *Session) sticker(ref model.StickerRef) (*model.UserSticker, error) {
	list := s.stickers[ref.Photo]
	if ref.Index < 0 || ref.Index >= len(list) {
		return nil, fmt.Errorf("%w: photo %d index %d", ErrNoSticker, ref.Photo, ref.Index)
	}
	return &list[ref.Index], nil
}

// AddSticker appends image to photo at the default placement and selects it.
func (s *Session) AddSticker(photo int, image string) (model.StickerRef, error) {
	if !s.layout.ValidPhoto(photo) {
		return model.StickerRef{}, fmt.Errorf("%w: %d", ErrPhotoOutOfRange, photo)
	}

	ref := model.StickerRef{Photo: photo, Index: len(s.stickers[photo])}
	s.stickers[photo] = append(s.stickers[photo], model.UserSticker{
		Image:  image,
		X:      DefaultX,
		Y:      DefaultY,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	})
	s.selected = &ref
	return ref, nil
}

// RemoveSticker deletes a sticker and clears the selection. A photo whose
// last sticker is removed loses its map entry.
func (s *Session) RemoveSticker(ref model.StickerRef) error {
	s.selected = nil

	list := s.stickers[ref.Photo]
	if ref.Index < 0 || ref.Index >= len(list) {
		return fmt.Errorf("%w: photo %d index %d", ErrNoSticker, ref.Photo, ref.Index)
	}

	if s.drag != nil && s.drag.ref.Photo == ref.Photo {
		s.drag = nil
	}

	list = append(list[:ref.Index:ref.Index], list[ref.Index+1:]...)
	if len(list) == 0 {
		delete(s.stickers, ref.Photo)
	} else {
		s.stickers[ref.Photo] = list
	}
	return nil
}

// Select makes ref the selected sticker.
func (s *Session) Select(ref model.StickerRef) error {
	if _, err := s.sticker(ref); err != nil {
		return err
	}
	s.selected = &ref
	return nil
}

// SelectNone clears the selection unless the click landed on a sticker.
func (s *Session) SelectNone(hitSticker bool) {
	if hitSticker {
		return
	}
	s.selected = nil
}

// Selected returns the selected sticker, if any.
func (s *Session) Selected() (model.StickerRef, bool) {
	if s.selected == nil {
		return model.StickerRef{}, false
	}
	return *s.selected, true
}

// BeginDrag starts a move or resize gesture on ref at pointer (x, y) and
// selects the sticker. Only one drag may be active.
func (s *Session) BeginDrag(ref model.StickerRef, mode DragMode, x, y float64) error {
	if s.drag != nil {
		return ErrDragActive
	}
	if _, err := ParseDragMode(string(mode)); err != nil {
		return err
	}
	st, err := s.sticker(ref)
	if err != nil {
		return err
	}

	ratio := 1.0
	if st.Width > 0 {
		ratio = st.Height / st.Width
	}
	s.drag = &dragState{ref: ref, mode: mode, lastX: x, lastY: y, ratio: ratio}
	s.selected = &ref
	return nil
}

// ContinueDrag applies the pointer movement since the previous event. The
// container is the on-screen strip; one percent of it is the move unit.
// It reports whether a sticker changed.
func (s *Session) ContinueDrag(x, y float64, container Size) bool {
	if s.drag == nil {
		return false
	}
	d := s.drag
	dx, dy := x-d.lastX, y-d.lastY
	d.lastX, d.lastY = x, y

	st, err := s.sticker(d.ref)
	if err != nil {
		s.drag = nil
		return false
	}

	switch d.mode {
	case DragMove:
		if container.W <= 0 || container.H <= 0 {
			return false
		}
		st.X = clamp(st.X+dx/(container.W/100), MinPosition, MaxPosition)
		st.Y = clamp(st.Y+dy/(container.H/100), MinPosition, MaxPosition)
	case DragResize:
		st.Width = clamp(st.Width+dx, MinSize, MaxSize)
		st.Height = st.Width * d.ratio
	}
	return true
}

// EndDrag finishes any drag.
func (s *Session) EndDrag() {
	s.drag = nil
}

// Dragging reports the active drag mode, or "" when idle.
func (s *Session) Dragging() DragMode {
	if s.drag == nil {
		return ""
	}
	return s.drag.mode
}

// Cursor is the pointer affordance for the current drag.
func (s *Session) Cursor() string {
	switch s.Dragging() {
	case DragMove:
		return "grabbing"
	case DragResize:
		return "nwse-resize"
	}
	return ""
}

// SelectColor switches to a solid colour background.
func (s *Session) SelectColor(hex string) error {
	if _, err := assets.ParseHexColor(hex); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	s.lastColor = hex
	s.background = model.SolidColor(hex)
	return nil
}

// SelectTemplate switches to a template background.
func (s *Session) SelectTemplate(t model.Template) {
	s.background = model.TemplateBackground(t)
}

// SelectPlain drops the template and restores the last chosen colour.
func (s *Session) SelectPlain() {
	s.background = model.SolidColor(s.lastColor)
}

// Background returns the active background.
func (s *Session) Background() model.Background {
	return s.background
}

// SetOverlays replaces the footer toggles.
func (s *Session) SetOverlays(o model.Overlays) {
	s.overlays = o
}

// Overlays returns the footer toggles.
func (s *Session) Overlays() model.Overlays {
	return s.overlays
}

// Snapshot is a deep copy of the session state.
type Snapshot struct {
	Layout     layout.Spec                 `json:"layout"`
	Stickers   map[int][]model.UserSticker `json:"stickers"`
	Selected   *model.StickerRef           `json:"selected"`
	Dragging   DragMode                    `json:"dragging,omitempty"`
	Cursor     string                      `json:"cursor,omitempty"`
	Background model.Background            `json:"background"`
	Overlays   model.Overlays              `json:"overlays"`
}

// Snapshot copies the state for rendering or serialisation.
func (s *Session) Snapshot() Snapshot {
	var sel *model.StickerRef
	if s.selected != nil {
		cp := *s.selected
		sel = &cp
	}
	return Snapshot{
		Layout:     s.layout,
		Stickers:   model.CloneStickers(s.stickers),
		Selected:   sel,
		Dragging:   s.Dragging(),
		Cursor:     s.Cursor(),
		Background: s.background,
		Overlays:   s.overlays,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
