// Package booth runs photobooth sessions: each one owns a capture pipeline,
// an edit session and a preview loop, and exports finished strips.
package booth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"photobooth/internal/assets"
	"photobooth/internal/compose"
	"photobooth/internal/config"
	"photobooth/internal/editor"
	"photobooth/internal/layout"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/service/capture"
	"photobooth/internal/service/storage"
	"sync"
	"time"

	"github.com/google/uuid"
)

// previewQuality is the JPEG quality of live frames sent to viewers.
const previewQuality = 70

// Broadcaster delivers session events and live frames to viewers.
type Broadcaster interface {
	BroadcastJSON(topic string, v interface{}) error
	BroadcastFrame(topic string, jpeg []byte)
	CloseTopic(topic string)
	GetClientCount(topic string) int
}

// StripSaver persists exported strips.
type StripSaver interface {
	Save(strip *model.Strip, data []byte) error
}

// SourceFactory opens a new frame source for a session.
type SourceFactory func() capture.FrameSource

// Options wires a Manager.
type Options struct {
	Catalog    *assets.Catalog
	Resolver   compose.Resolver
	Fonts      *compose.Fonts
	Store      StripSaver
	Hub        Broadcaster
	NewSource  SourceFactory
	CameraMode string
	Capture    capture.Options // timing overrides; OnEvent is set per session
	Now        func() time.Time
}

// CreateParams are the choices made before a session starts.
type CreateParams struct {
	Layout string `json:"layout"`
	Timer  int    `json:"timer"`
	Filter string `json:"filter"`
}

// Manager keeps the live sessions keyed by id.
type Manager struct {
	catalog    *assets.Catalog
	resolver   compose.Resolver
	fonts      *compose.Fonts
	store      StripSaver
	hub        Broadcaster
	newSource  SourceFactory
	cameraMode string
	capture    capture.Options
	now        func() time.Time

	ttl             time.Duration
	janitorInterval time.Duration
	previewInterval time.Duration
	quality         int

	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *logger.Logger
}

// NewManager creates a manager using cfg for timing and export quality.
func NewManager(cfg *config.Config, opts Options, logger *logger.Logger) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = assets.Default()
	}
	if opts.NewSource == nil {
		opts.NewSource = func() capture.FrameSource { return capture.NewPushSource() }
	}
	if opts.CameraMode == "" {
		opts.CameraMode = config.CameraModeRemote
	}

	fps := cfg.PreviewFPS
	if fps <= 0 {
		fps = 10
	}

	return &Manager{
		catalog:         opts.Catalog,
		resolver:        opts.Resolver,
		fonts:           opts.Fonts,
		store:           opts.Store,
		hub:             opts.Hub,
		newSource:       opts.NewSource,
		cameraMode:      opts.CameraMode,
		capture:         opts.Capture,
		now:             opts.Now,
		ttl:             cfg.SessionTTL,
		janitorInterval: cfg.JanitorInterval,
		previewInterval: time.Second / time.Duration(fps),
		quality:         cfg.JPEGQuality,
		sessions:        make(map[string]*Session),
		logger:          logger,
	}
}

// Catalog returns the catalog sessions are validated against.
func (m *Manager) Catalog() *assets.Catalog {
	return m.catalog
}

// Create starts a session. Camera failures do not fail creation: they are
// reported on the session and the pipeline stays usable.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*Session, error) {
	spec, err := layout.Lookup(params.Layout)
	if err != nil {
		return nil, err
	}

	settings := capture.DefaultSettings()
	settings.Timer = m.catalog.DefaultTimer
	if params.Timer != 0 {
		if !m.catalog.HasTimer(params.Timer) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTimer, params.Timer)
		}
		settings.Timer = params.Timer
	}
	if params.Filter != "" {
		if !m.catalog.HasFilter(params.Filter) {
			return nil, fmt.Errorf("%w: %q", capture.ErrUnknownFilter, params.Filter)
		}
		settings.Filter = params.Filter
	}

	id := uuid.New().String()
	source := m.newSource()

	opts := m.capture
	opts.OnEvent = func(ev capture.Event) { m.publish(id, ev) }

	pipeline, err := capture.NewPipeline(spec, source, settings, opts, m.logger)
	if err != nil {
		source.Close()
		return nil, err
	}

	loopCtx, stop := context.WithCancel(context.Background())
	now := m.now()
	s := &Session{
		id:         id,
		spec:       spec,
		mode:       m.cameraMode,
		created:    now,
		manager:    m,
		pipeline:   pipeline,
		source:     source,
		stop:       stop,
		editor:     editor.NewSession(spec),
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if err := pipeline.Open(ctx); err != nil {
		m.logger.Warning("Session %s started without camera: %v", id, err)
	}
	go m.previewLoop(loopCtx, s)

	m.logger.Info("Session %s created with layout %s", id, spec.ID)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete closes a session and releases its camera.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if m.hub != nil {
		m.hub.CloseTopic(id)
	}
	if err := s.close(); err != nil {
		m.logger.Error("Error closing session %s: %v", id, err)
	}
	m.logger.Info("Session %s closed", id)
	return nil
}

// Export renders the session's strip, encodes it and stores it. The strip
// is only returned once it is fully written and recorded.
func (m *Manager) Export(ctx context.Context, id string) (*model.Strip, []byte, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, nil, err
	}
	at := m.now()
	scene, err := s.exportScene(at)
	if err != nil {
		return nil, nil, err
	}
	data, err := compose.Export(ctx, scene, m.resolver, m.fonts, m.quality)
	if err != nil {
		m.logger.Error("Export of session %s failed: %v", id, err)
		return nil, nil, err
	}

	strip := &model.Strip{
		Layout:    s.spec.ID,
		Photos:    s.spec.Photos,
		Width:     s.spec.Width,
		Height:    s.spec.Height,
		FileSize:  int64(len(data)),
		CreatedAt: at,
	}
	if tpl, ok := scene.Background.Template(); ok {
		strip.Template = tpl.Name
	}

	// Exports within the same millisecond get the next free name.
	for attempt := 0; ; attempt++ {
		strip.Filename = compose.Filename(m.catalog.Brand.Prefix, s.spec.ID, at.Add(time.Duration(attempt)*time.Millisecond))
		if m.store == nil {
			break
		}
		err = m.store.Save(strip, data)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrStripExists) || attempt == 9 {
			m.logger.Error("Saving strip %s failed: %v", strip.Filename, err)
			return nil, nil, err
		}
	}

	m.logger.Info("Session %s exported %s", id, strip.Filename)
	return strip, data, nil
}

// publish forwards a pipeline event to the session's viewers.
func (m *Manager) publish(id string, ev capture.Event) {
	if m.hub == nil {
		return
	}
	if err := m.hub.BroadcastJSON(id, ev); err != nil {
		m.logger.Error("Error broadcasting event for %s: %v", id, err)
	}
}

func (m *Manager) viewers(id string) int {
	if m.hub == nil {
		return 0
	}
	return m.hub.GetClientCount(id)
}

// previewLoop streams live frames to viewers until capture completes or
// the session closes. Frames are only encoded while someone is watching.
func (m *Manager) previewLoop(ctx context.Context, s *Session) {
	if m.hub == nil {
		return
	}
	ticker := time.NewTicker(m.previewInterval)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.pipeline.Completed() || m.hub.GetClientCount(s.id) == 0 {
			continue
		}
		frame, err := s.pipeline.PreviewFrame()
		if err != nil {
			continue
		}

		buf.Reset()
		if err := compose.EncodeJPEG(&buf, frame, previewQuality); err != nil {
			m.logger.Error("Error encoding preview frame: %v", err)
			continue
		}
		data := make([]byte, buf.Len())
		copy(data, buf.Bytes())
		m.hub.BroadcastFrame(s.id, data)
	}
}

// Run sweeps idle sessions until ctx is cancelled, then closes every
// session.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.janitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if err := m.Delete(id); err == nil {
			closed++
			m.logger.Info("Session %s expired", id)
		}
	}
	return closed
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Delete(id)
	}
}
