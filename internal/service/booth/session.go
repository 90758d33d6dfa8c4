package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"photobooth/internal/compose"
	"photobooth/internal/editor"
	"photobooth/internal/layout"
	"photobooth/internal/model"
	"photobooth/internal/service/capture"
	"sync"
	"time"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotComplete       = errors.New("capture not complete")
	ErrNotRemote         = errors.New("session camera is not remote")
	ErrUnknownSticker    = errors.New("unknown sticker")
	ErrUnknownTemplate   = errors.New("unknown template")
	ErrUnknownTimer      = errors.New("unknown timer")
	ErrUnknownBackground = errors.New("unknown background kind")
)

// State summarises a session for the UI.
type State struct {
	ID       string          `json:"id"`
	Layout   layout.Spec     `json:"layout"`
	Camera   string          `json:"camera"`
	Capture  capture.Status  `json:"capture"`
	Editable bool            `json:"editable"`
	Editor   editor.Snapshot `json:"editor"`
	Viewers  int             `json:"viewers"`
	Created  time.Time       `json:"created"`
}

// Session is one booth visit: a capture pipeline followed by an edit
// session over the captured photos. All methods are safe for concurrent use.
type Session struct {
	id      string
	spec    layout.Spec
	mode    string
	created time.Time
	manager *Manager

	pipeline *capture.Pipeline
	source   capture.FrameSource
	stop     context.CancelFunc

	mu         sync.Mutex
	editor     *editor.Session
	lastActive time.Time
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Layout returns the session's layout.
func (s *Session) Layout() layout.Spec {
	return s.spec
}

func (s *Session) touch() {
	s.lastActive = s.manager.now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// State snapshots the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	status := s.pipeline.Status()
	return State{
		ID:       s.id,
		Layout:   s.spec,
		Camera:   s.mode,
		Capture:  status,
		Editable: status.Completed,
		Editor:   s.editor.Snapshot(),
		Viewers:  s.manager.viewers(s.id),
		Created:  s.created,
	}
}

// ========================================
// Capture
// ========================================

// StartCapture arms the countdown for the next photo.
func (s *Session) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.pipeline.StartCountdown()
}

// UpdateSettings replaces the capture controls. The timer and filter must be
// ones the catalog offers; an empty filter means none.
func (s *Session) UpdateSettings(settings capture.Settings) (capture.Status, error) {
	if !s.manager.catalog.HasTimer(settings.Timer) {
		return capture.Status{}, fmt.Errorf("%w: %d", ErrUnknownTimer, settings.Timer)
	}
	if settings.Filter != "" && !s.manager.catalog.HasFilter(settings.Filter) {
		return capture.Status{}, fmt.Errorf("%w: %q", capture.ErrUnknownFilter, settings.Filter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.pipeline.UpdateSettings(settings); err != nil {
		return capture.Status{}, err
	}
	return s.pipeline.Status(), nil
}

// Retake discards the photos and every edit.
func (s *Session) Retake() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pipeline.Retake()
	s.editor.Reset()
	return s.stateLocked()
}

// Thumbnail returns captured photo i scaled to fit size x size.
func (s *Session) Thumbnail(i int, size uint) (image.Image, error) {
	img, err := s.pipeline.Thumbnail(i, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", editor.ErrPhotoOutOfRange, err)
	}
	return img, nil
}

// Frame returns the live frame mirrored and filtered like a capture.
func (s *Session) Frame() (image.Image, error) {
	return s.pipeline.PreviewFrame()
}

// PushFrame feeds a JPEG frame from a remote camera.
func (s *Session) PushFrame(data []byte) error {
	ps, ok := s.source.(*capture.PushSource)
	if !ok {
		return ErrNotRemote
	}
	return ps.Push(data)
}

// DenyCamera records that the remote client could not open its camera.
func (s *Session) DenyCamera(reason string) error {
	ps, ok := s.source.(*capture.PushSource)
	if !ok {
		return ErrNotRemote
	}
	s.pipeline.ReportCameraError(ps.Deny(reason))
	return nil
}

// ========================================
// Editing
// ========================================

// edit runs fn against the editor once capture is complete and returns the
// resulting snapshot.
func (s *Session) edit(fn func(e *editor.Session) error) (editor.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.pipeline.Completed() {
		return editor.Snapshot{}, ErrNotComplete
	}
	if err := fn(s.editor); err != nil {
		return editor.Snapshot{}, err
	}
	return s.editor.Snapshot(), nil
}

// AddSticker places a catalog sticker on photo.
func (s *Session) AddSticker(photo int, img string) (editor.Snapshot, error) {
	if !s.manager.catalog.HasSticker(img) {
		return editor.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSticker, img)
	}
	return s.edit(func(e *editor.Session) error {
		_, err := e.AddSticker(photo, img)
		return err
	})
}

func (s *Session) RemoveSticker(ref model.StickerRef) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		return e.RemoveSticker(ref)
	})
}

func (s *Session) SelectSticker(ref model.StickerRef) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		return e.Select(ref)
	})
}

// ClearSelection handles a click on the strip. hit reports whether the
// click landed on a sticker.
func (s *Session) ClearSelection(hit bool) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		e.SelectNone(hit)
		return nil
	})
}

func (s *Session) BeginDrag(ref model.StickerRef, mode editor.DragMode, x, y float64) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		return e.BeginDrag(ref, mode, x, y)
	})
}

func (s *Session) MoveDrag(x, y float64, container editor.Size) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		e.ContinueDrag(x, y, container)
		return nil
	})
}

func (s *Session) EndDrag() (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		e.EndDrag()
		return nil
	})
}

// SetBackground switches between a colour, a catalog template and the
// plain background (the last chosen colour).
func (s *Session) SetBackground(kind, color, template string) (editor.Snapshot, error) {
	var tpl model.Template
	switch kind {
	case "plain":
	case string(model.BackgroundColor):
	case string(model.BackgroundTemplate):
		var ok bool
		if tpl, ok = s.manager.catalog.Template(template); !ok {
			return editor.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
		}
	default:
		return editor.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownBackground, kind)
	}

	return s.edit(func(e *editor.Session) error {
		switch kind {
		case string(model.BackgroundColor):
			return e.SelectColor(color)
		case string(model.BackgroundTemplate):
			e.SelectTemplate(tpl)
		default:
			e.SelectPlain()
		}
		return nil
	})
}

func (s *Session) SetOverlays(o model.Overlays) (editor.Snapshot, error) {
	return s.edit(func(e *editor.Session) error {
		e.SetOverlays(o)
		return nil
	})
}

// ========================================
// Rendering
// ========================================

// scene snapshots everything Render needs.
func (s *Session) scene(at time.Time) compose.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneLocked(at)
}

// exportScene snapshots the scene of a completed capture. The check and the
// snapshot happen under one lock so a concurrent Retake cannot empty it.
func (s *Session) exportScene(at time.Time) (compose.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pipeline.Completed() {
		return compose.Scene{}, ErrNotComplete
	}
	return s.sceneLocked(at), nil
}

func (s *Session) sceneLocked(at time.Time) compose.Scene {
	s.touch()

	snap := s.editor.Snapshot()
	return compose.Scene{
		Layout:     s.spec,
		Photos:     s.pipeline.Photos(),
		Background: snap.Background,
		Stickers:   snap.Stickers,
		Overlays:   snap.Overlays,
		Wordmark:   s.manager.catalog.Brand.Wordmark,
		Now:        at,
	}
}

// Preview renders the positioned layers the browser shows. It works at any
// point, with whatever photos exist so far.
func (s *Session) Preview(ctx context.Context) (compose.Document, error) {
	canvas := compose.NewPreviewCanvas()
	if err := compose.Render(ctx, canvas, s.scene(s.manager.now())); err != nil {
		return compose.Document{}, err
	}
	return canvas.Document(), nil
}

// close stops the preview loop and the pipeline, releasing the camera.
func (s *Session) close() error {
	if s.stop != nil {
		s.stop()
	}
	return s.pipeline.Stop()
}
