package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"photobooth/internal/layout"
	"photobooth/internal/logger"
	"sync"
	"time"

	"github.com/nfnt/resize"
)

var (
	ErrBusy        = errors.New("countdown already running")
	ErrComplete    = errors.New("all photos captured")
	ErrClosed      = errors.New("capture pipeline stopped")
	ErrInvalidTime = errors.New("invalid timer")
)

// State of the capture loop.
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
)

// Event types sent to the listener.
const (
	EventCountdown = "countdown"
	EventCaptured  = "captured"
	EventComplete  = "complete"
	EventError     = "error"
)

// Error kinds carried by error events.
const (
	ErrorKindCameraAccess = "camera_access"
	ErrorKindNoFrame      = "no_frame"
)

// Event describes a pipeline transition.
type Event struct {
	Type    string `json:"type"`
	Count   int    `json:"count,omitempty"`
	Index   int    `json:"index"`
	Total   int    `json:"total,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Settings are the user-facing capture controls.
type Settings struct {
	Timer        int    `json:"timer"`
	Filter       string `json:"filter"`
	Auto         bool   `json:"auto"`
	AutoMirror   bool   `json:"autoMirror"`
	ManualMirror bool   `json:"mirror"`
}

// DefaultSettings: 5 second timer, no filter, manual capture, mirrored.
func DefaultSettings() Settings {
	return Settings{
		Timer:        5,
		Filter:       FilterNone,
		AutoMirror:   true,
		ManualMirror: true,
	}
}

// Mirrored reports whether the live preview is shown flipped. Captures use
// the same predicate so they match what was on screen.
func (s Settings) Mirrored() bool {
	return s.AutoMirror || s.ManualMirror
}

// Options tune pipeline timing.
type Options struct {
	Tick       time.Duration // countdown step, one second by default
	RearmDelay time.Duration // pause before the next auto capture
	OnEvent    func(Event)
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	State       State    `json:"state"`
	Remaining   int      `json:"remaining"`
	Captured    int      `json:"captured"`
	Total       int      `json:"total"`
	Completed   bool     `json:"completed"`
	Settings    Settings `json:"settings"`
	FilterCSS   string   `json:"filterCss"`
	CameraError string   `json:"cameraError,omitempty"`
}

// Pipeline runs the countdown and capture loop for one layout.
type Pipeline struct {
	mu        sync.Mutex
	spec      layout.Spec
	source    FrameSource
	settings  Settings
	filter    Filter
	state     State
	remaining int
	photos    []image.Image
	completed bool
	closed    bool
	cameraErr error
	cancel    context.CancelFunc
	rearm     *time.Timer
	gen       int // bumped by Retake and Stop to orphan pending re-arms
	tick      time.Duration
	delay     time.Duration
	onEvent   func(Event)
	logger    *logger.Logger
}

// NewPipeline validates settings and builds an idle pipeline.
func NewPipeline(spec layout.Spec, source FrameSource, settings Settings, opts Options, logger *logger.Logger) (*Pipeline, error) {
	filter, err := ParseFilter(settings.Filter)
	if err != nil {
		return nil, err
	}
	if settings.Timer <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTime, settings.Timer)
	}
	settings.Filter = filter.ID

	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.RearmDelay <= 0 {
		opts.RearmDelay = 2 * time.Second
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}

	return &Pipeline{
		spec:     spec,
		source:   source,
		settings: settings,
		filter:   filter,
		state:    StateIdle,
		tick:     opts.Tick,
		delay:    opts.RearmDelay,
		onEvent:  opts.OnEvent,
		logger:   logger,
	}, nil
}

// Open acquires the camera. A failure is logged and reported as an error
// event; the pipeline stays usable without a feed and is not retried.
func (p *Pipeline) Open(ctx context.Context) error {
	err := p.source.Open(ctx)
	if err == nil {
		p.mu.Lock()
		p.cameraErr = nil
		p.mu.Unlock()
		return nil
	}

	var cae *CameraAccessError
	if !errors.As(err, &cae) {
		cae = &CameraAccessError{Reason: "open failed", Err: err}
	}
	p.ReportCameraError(cae)
	return cae
}

// ReportCameraError records a camera failure raised outside Open, such as a
// remote client that was denied permission.
func (p *Pipeline) ReportCameraError(err *CameraAccessError) {
	p.mu.Lock()
	p.cameraErr = err
	p.mu.Unlock()

	p.logger.Error("Camera access error: %v", err)
	p.onEvent(Event{Type: EventError, Kind: ErrorKindCameraAccess, Message: err.Error()})
}

// StartCountdown arms the timer. At zero one frame is captured.
func (p *Pipeline) StartCountdown() error {
	p.mu.Lock()
	if err := p.startLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	seconds := p.remaining
	p.mu.Unlock()

	p.onEvent(Event{Type: EventCountdown, Count: seconds})
	return nil
}

func (p *Pipeline) startLocked() error {
	switch {
	case p.closed:
		return ErrClosed
	case p.completed:
		return ErrComplete
	case p.state == StateCountdown:
		return ErrBusy
	}
	p.stopRearmLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.state = StateCountdown
	p.remaining = p.settings.Timer

	go p.run(ctx, p.remaining)
	return nil
}

func (p *Pipeline) run(ctx context.Context, seconds int) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for n := seconds; n > 0; {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n--

		p.mu.Lock()
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		p.remaining = n
		p.mu.Unlock()

		if n > 0 {
			p.onEvent(Event{Type: EventCountdown, Count: n})
		}
	}

	p.capture(ctx)
}

// capture grabs, mirrors and filters one frame, then decides what follows.
func (p *Pipeline) capture(ctx context.Context) {
	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.state = StateIdle
	p.remaining = 0
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	frame, err := p.readLocked()
	var photo *image.RGBA
	if err == nil {
		photo, err = p.processLocked(frame)
	}
	if err != nil {
		p.mu.Unlock()
		p.logger.Warning("Capture skipped: %v", err)
		p.onEvent(Event{Type: EventError, Kind: ErrorKindNoFrame, Message: err.Error()})
		return
	}

	p.photos = append(p.photos, photo)
	index := len(p.photos) - 1
	total := p.spec.Photos

	done := len(p.photos) >= total
	if done {
		p.completed = true
		p.settings.Auto = false
	} else if p.settings.Auto {
		gen := p.gen
		p.rearm = time.AfterFunc(p.delay, func() { p.autoRearm(gen) })
	}
	p.mu.Unlock()

	p.logger.Info("Captured photo %d/%d", index+1, total)
	p.onEvent(Event{Type: EventCaptured, Index: index, Total: total})
	if done {
		p.onEvent(Event{Type: EventComplete, Total: total})
	}
}

func (p *Pipeline) autoRearm(gen int) {
	p.mu.Lock()
	if !p.settings.Auto || p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.rearm = nil
	p.mu.Unlock()

	if err := p.StartCountdown(); err != nil && !errors.Is(err, ErrBusy) {
		p.logger.Warning("Auto capture not re-armed: %v", err)
	}
}

// readLocked reads the current frame. A frame arriving after a camera error
// means the camera recovered, so the error is cleared.
func (p *Pipeline) readLocked() (image.Image, error) {
	frame, err := p.source.Read()
	if err != nil {
		return nil, err
	}
	if p.cameraErr != nil {
		p.logger.Info("Camera recovered: %v", p.cameraErr)
		p.cameraErr = nil
	}
	return frame, nil
}

// processLocked applies the mirror and filter that the preview shows.
func (p *Pipeline) processLocked(frame image.Image) (*image.RGBA, error) {
	return Process(frame, p.settings.Mirrored(), p.filter)
}

// PreviewFrame returns the current frame exactly as a capture would store
// it.
func (p *Pipeline) PreviewFrame() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	frame, err := p.readLocked()
	if err != nil {
		return nil, err
	}
	return p.processLocked(frame)
}

// UpdateSettings replaces the capture controls. Turning auto off cancels a
// pending re-arm; a running countdown finishes.
func (p *Pipeline) UpdateSettings(s Settings) error {
	filter, err := ParseFilter(s.Filter)
	if err != nil {
		return err
	}
	if s.Timer <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTime, s.Timer)
	}
	s.Filter = filter.ID

	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
	p.filter = filter
	if !s.Auto {
		p.stopRearmLocked()
	}
	return nil
}

// Settings returns the current capture controls.
func (p *Pipeline) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Retake discards all captures and returns to idle.
func (p *Pipeline) Retake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.photos = nil
	p.completed = false
}

// Photos returns the captured photos in order.
func (p *Pipeline) Photos() []image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]image.Image, len(p.photos))
	copy(out, p.photos)
	return out
}

// Thumbnail scales photo i to fit within size x size.
func (p *Pipeline) Thumbnail(i int, size uint) (image.Image, error) {
	p.mu.Lock()
	if i < 0 || i >= len(p.photos) {
		p.mu.Unlock()
		return nil, fmt.Errorf("photo %d not captured", i)
	}
	photo := p.photos[i]
	p.mu.Unlock()

	return resize.Thumbnail(size, size, photo, resize.Lanczos3), nil
}

// Status snapshots the pipeline.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		State:     p.state,
		Remaining: p.remaining,
		Captured:  len(p.photos),
		Total:     p.spec.Photos,
		Completed: p.completed,
		Settings:  p.settings,
		FilterCSS: p.filter.CSS(),
	}
	if p.cameraErr != nil {
		st.CameraError = p.cameraErr.Error()
	}
	return st
}

// Completed reports whether every photo of the layout is captured.
func (p *Pipeline) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// Stop cancels any countdown or pending re-arm and releases the camera.
// It is idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cancelLocked()
	p.mu.Unlock()

	return p.source.Close()
}

func (p *Pipeline) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.stopRearmLocked()
	p.gen++
	p.state = StateIdle
	p.remaining = 0
}

func (p *Pipeline) stopRearmLocked() {
	if p.rearm != nil {
		p.rearm.Stop()
		p.rearm = nil
	}
}
