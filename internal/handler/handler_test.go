package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"photobooth/internal/assets"
	"photobooth/internal/compose"
	"photobooth/internal/config"
	"photobooth/internal/dto"
	"photobooth/internal/editor"
	"photobooth/internal/layout"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/repository/sqlite"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/capture"
	"photobooth/internal/service/storage"
	"photobooth/internal/service/websocket"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
)

// ========================================
// Test Setup Helpers
// ========================================

type testEnv struct {
	cfg     *config.Config
	logger  *logger.Logger
	manager *booth.Manager
	hub     *websocket.HubService
	repo    *sqlite.StripRepository
	store   *storage.StripStore
	server  *httptest.Server
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngFile(t *testing.T, c color.Color) *fstest.MapFile {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(8, 8, c)); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return &fstest.MapFile{Data: buf.Bytes()}
}

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(64, 48, color.RGBA{40, 120, 200, 255}), nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	cfg := &config.Config{
		Password:        "secret",
		PublicURL:       "http://booth.test",
		ExportDirectory: filepath.Join(tempDir, "exports"),
		LogDirectory:    filepath.Join(tempDir, "logs"),
		CameraMode:      config.CameraModeRemote,
		PreviewFPS:      100,
		JPEGQuality:     90,
		SessionTTL:      time.Minute,
		JanitorInterval: time.Hour,
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fonts, err := compose.LoadFonts()
	if err != nil {
		t.Fatalf("LoadFonts failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := &testEnv{cfg: cfg, logger: log}
	env.repo = sqlite.NewStripRepository(db)
	env.store = storage.NewStripStore(cfg.ExportDirectory, env.repo, log)
	env.hub = websocket.NewHubService(log)
	go env.hub.Run(ctx)

	fsys := fstest.MapFS{
		"stickers/meow1.png": pngFile(t, color.RGBA{255, 0, 0, 255}),
	}
	env.manager = booth.NewManager(cfg, booth.Options{
		Resolver: assets.NewLoader(fsys),
		Fonts:    fonts,
		Store:    env.store,
		Hub:      env.hub,
		Capture:  capture.Options{Tick: 5 * time.Millisecond, RearmDelay: 10 * time.Millisecond},
	}, log)

	env.server = httptest.NewServer(env.router())
	t.Cleanup(env.server.Close)
	t.Cleanup(env.manager.CloseAll)
	return env
}

func (env *testEnv) router() http.Handler {
	r := chi.NewRouter()
	m, log := env.manager, env.logger

	r.Get("/api/catalog", CatalogHandler(m.Catalog(), log))
	r.Post("/api/sessions", CreateSessionHandler(m, log))
	r.Get("/api/sessions/{id}", GetSessionHandler(m, log))
	r.Delete("/api/sessions/{id}", DeleteSessionHandler(m, log))
	r.Post("/api/sessions/{id}/capture", StartCaptureHandler(m, log))
	r.Put("/api/sessions/{id}/capture/settings", CaptureSettingsHandler(m, log))
	r.Post("/api/sessions/{id}/retake", RetakeHandler(m, log))
	r.Get("/api/sessions/{id}/photos/{photo}/thumb", ThumbnailHandler(m, log))
	r.Get("/api/sessions/{id}/frame", FrameHandler(m, log))
	r.Get("/api/sessions/{id}/preview", PreviewHandler(m, log))
	r.Post("/api/sessions/{id}/stickers", AddStickerHandler(m, log))
	r.Delete("/api/sessions/{id}/stickers/{photo}/{index}", RemoveStickerHandler(m, log))
	r.Post("/api/sessions/{id}/stickers/{photo}/{index}/select", SelectStickerHandler(m, log))
	r.Post("/api/sessions/{id}/selection/clear", ClearSelectionHandler(m, log))
	r.Post("/api/sessions/{id}/drag/begin", BeginDragHandler(m, log))
	r.Post("/api/sessions/{id}/drag/move", MoveDragHandler(m, log))
	r.Post("/api/sessions/{id}/drag/end", EndDragHandler(m, log))
	r.Put("/api/sessions/{id}/background", BackgroundHandler(m, log))
	r.Put("/api/sessions/{id}/overlays", OverlaysHandler(m, log))
	r.Post("/api/sessions/{id}/export", ExportHandler(m, log))
	r.Get("/ws/sessions/{id}", ViewWebsocketHandler(m, env.hub, log))
	r.Get("/ws/sessions/{id}/camera", CameraWebsocketHandler(m, log))

	r.Get("/downloads/{filename}", DownloadStripHandler(log, env.repo, env.store))
	r.Get("/api/strips", GetStripsHandler(env.cfg, log, env.repo))
	r.Get("/api/strips/stats", StripStatsHandler(log, env.repo, env.store))
	r.Get("/api/strips/{id}/view", ViewStripHandler(log, env.repo, env.store))
	r.Get("/api/strips/{id}/qr", StripQRHandler(env.cfg, log, env.repo))
	r.Delete("/api/strips/{id}", DeleteStripHandler(log, env.store))
	r.Delete("/api/strips", ClearStripsHandler(log, env.store))

	r.Post("/auth/login", LoginHandler(env.cfg, log))
	r.Get("/auth/logout", LogoutHandler)
	r.Get("/logs/{level}", ShowLogsHandler(log))
	r.Post("/logs/{level}/clear", ClearLogsHandler(log))
	return r
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, kind string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("Expected status %d, got %d", status, resp.StatusCode)
	}
	body := decode[dto.ErrorResponse](t, resp)
	if body.Error != kind {
		t.Errorf("Expected error kind %q, got %q (%s)", kind, body.Error, body.Message)
	}
}

func (env *testEnv) createSession(t *testing.T, layoutID string) *booth.Session {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/sessions", dto.CreateSessionRequest{Layout: layoutID, Timer: 3})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	state := decode[booth.State](t, resp)
	s, err := env.manager.Get(state.ID)
	if err != nil {
		t.Fatalf("Session %s not registered: %v", state.ID, err)
	}
	return s
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// captureAll takes every photo of s through the HTTP API.
func (env *testEnv) captureAll(t *testing.T, s *booth.Session) {
	t.Helper()
	if err := s.PushFrame(jpegFrame(t)); err != nil {
		t.Fatalf("PushFrame failed: %v", err)
	}
	for i := 0; i < s.Layout().Photos; i++ {
		resp := env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/capture", nil)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("Capture %d: expected 202, got %d", i, resp.StatusCode)
		}
		n := i + 1
		waitUntil(t, fmt.Sprintf("photo %d", n), func() bool { return s.State().Capture.Captured == n })
	}
}

// ========================================
// Error Mapping Tests
// ========================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"asset", &assets.AssetLoadError{Ref: "/stickers/x.png", Err: os.ErrNotExist}, http.StatusBadGateway, KindAssetLoad},
		{"camera", &capture.CameraAccessError{Reason: "denied"}, http.StatusServiceUnavailable, KindCameraAccess},
		{"no frame", capture.ErrNoFrame, http.StatusServiceUnavailable, KindNoFrame},
		{"session", fmt.Errorf("%w: abc", booth.ErrSessionNotFound), http.StatusNotFound, KindNotFound},
		{"strip", storage.ErrStripNotFound, http.StatusNotFound, KindNotFound},
		{"busy", capture.ErrBusy, http.StatusConflict, KindConflict},
		{"not complete", booth.ErrNotComplete, http.StatusConflict, KindConflict},
		{"layout", fmt.Errorf("%w: \"9x9\"", layout.ErrUnknownLayout), http.StatusBadRequest, KindValidation},
		{"color", editor.ErrInvalidColor, http.StatusBadRequest, KindValidation},
		{"body", fmt.Errorf("%w: EOF", errInvalidRequest), http.StatusBadRequest, KindValidation},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := classify(tt.err)
			if status != tt.status || kind != tt.kind {
				t.Errorf("classify(%v) = %d %s, expected %d %s", tt.err, status, kind, tt.status, tt.kind)
			}
		})
	}
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, logger.Discard(), errors.New("secret path /var/lib"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	var body dto.ErrorResponse
	json.NewDecoder(w.Body).Decode(&body)
	if body.Message != "Internal Server Error" {
		t.Errorf("Internal errors must not leak, got %q", body.Message)
	}
}

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
		{"12.5", 5, 5},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

// ========================================
// Catalog & Session Tests
// ========================================

func TestCatalogHandler(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/catalog", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	cat := decode[catalogResponse](t, resp)

	if cat.AssetBase != AssetPrefix {
		t.Errorf("Expected asset base %s, got %s", AssetPrefix, cat.AssetBase)
	}
	if len(cat.Layouts) != len(layout.All()) {
		t.Errorf("Expected %d layouts, got %d", len(layout.All()), len(cat.Layouts))
	}
	if cat.DefaultTimer != 5 || len(cat.Timers) != 3 {
		t.Errorf("Unexpected timers %v default %d", cat.Timers, cat.DefaultTimer)
	}
	for _, f := range cat.Filters {
		if f.ID == "bw" && f.CSS == "" {
			t.Error("Expected CSS preview for bw filter")
		}
	}
	if len(cat.Stickers) == 0 || len(cat.Templates) == 0 {
		t.Error("Expected stickers and templates in catalog")
	}
}

func TestCreateSessionHandler(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/sessions", dto.CreateSessionRequest{Layout: "3x4"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	state := decode[booth.State](t, resp)

	if resp.Header.Get("Location") != "/api/sessions/"+state.ID {
		t.Errorf("Unexpected Location %q", resp.Header.Get("Location"))
	}
	if state.Layout.ID != "3x4" || state.Capture.Total != 3 {
		t.Errorf("Unexpected state %+v", state)
	}
	if state.Editable {
		t.Error("New session must not be editable")
	}

	got := env.do(t, http.MethodGet, "/api/sessions/"+state.ID, nil)
	if got.StatusCode != http.StatusOK {
		t.Errorf("GET session: expected 200, got %d", got.StatusCode)
	}
}

func TestCreateSessionHandler_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown layout", dto.CreateSessionRequest{Layout: "9x9"}},
		{"unknown timer", dto.CreateSessionRequest{Layout: "2x6", Timer: 4}},
		{"unknown filter", dto.CreateSessionRequest{Layout: "2x6", Filter: "neon"}},
		{"not an object", []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/sessions", tt.body)
			expectError(t, resp, http.StatusBadRequest, KindValidation)
		})
	}
}

func TestSessionHandlers_NotFound(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/sessions/missing"},
		{http.MethodDelete, "/api/sessions/missing"},
		{http.MethodPost, "/api/sessions/missing/capture"},
		{http.MethodGet, "/api/sessions/missing/preview"},
		{http.MethodPost, "/api/sessions/missing/export"},
	}

	for _, p := range paths {
		resp := env.do(t, p.method, p.path, nil)
		expectError(t, resp, http.StatusNotFound, KindNotFound)
	}
}

func TestDeleteSessionHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")

	resp := env.do(t, http.MethodDelete, "/api/sessions/"+s.ID(), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if _, err := env.manager.Get(s.ID()); !errors.Is(err, booth.ErrSessionNotFound) {
		t.Errorf("Expected session to be gone, got %v", err)
	}
}

// ========================================
// Capture Tests
// ========================================

func TestFrameHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")

	resp := env.do(t, http.MethodGet, "/api/sessions/"+s.ID()+"/frame", nil)
	expectError(t, resp, http.StatusServiceUnavailable, KindNoFrame)

	if err := s.PushFrame(jpegFrame(t)); err != nil {
		t.Fatalf("PushFrame failed: %v", err)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions/"+s.ID()+"/frame", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("Expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
	if _, err := jpeg.Decode(resp.Body); err != nil {
		t.Errorf("Frame is not a JPEG: %v", err)
	}
}

func TestCaptureSettingsHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")
	path := "/api/sessions/" + s.ID() + "/capture/settings"

	resp := env.do(t, http.MethodPut, path, map[string]interface{}{"filter": "sepia", "timer": 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	status := decode[capture.Status](t, resp)
	if status.Settings.Filter != "sepia" || status.Settings.Timer != 10 {
		t.Errorf("Settings not applied: %+v", status.Settings)
	}
	if !status.Settings.ManualMirror {
		t.Error("Fields missing from the request must keep their value")
	}
	if status.FilterCSS == "" {
		t.Error("Expected CSS for sepia")
	}

	resp = env.do(t, http.MethodPut, path, map[string]interface{}{"timer": 7})
	expectError(t, resp, http.StatusBadRequest, KindValidation)
}

func TestCaptureFlow(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")

	env.captureAll(t, s)
	waitUntil(t, "completion", func() bool { return s.State().Editable })

	resp := env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/capture", nil)
	expectError(t, resp, http.StatusConflict, KindConflict)

	resp = env.do(t, http.MethodGet, "/api/sessions/"+s.ID()+"/photos/1/thumb?size=32", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Thumbnail: expected 200, got %d", resp.StatusCode)
	}
	thumb, err := jpeg.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Thumbnail is not a JPEG: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() > 32 || b.Dy() > 32 {
		t.Errorf("Thumbnail %v exceeds 32px", b)
	}

	resp = env.do(t, http.MethodGet, "/api/sessions/"+s.ID()+"/photos/5/thumb", nil)
	expectError(t, resp, http.StatusBadRequest, KindValidation)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/retake", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Retake: expected 200, got %d", resp.StatusCode)
	}
	state := decode[booth.State](t, resp)
	if state.Capture.Captured != 0 || state.Editable {
		t.Errorf("Retake should reset capture, got %+v", state.Capture)
	}
}

// ========================================
// Editor Tests
// ========================================

func TestEditorHandlers_RequireCompletedCapture(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")

	resp := env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/stickers",
		dto.StickerRequest{Photo: 0, Image: "/stickers/meow1.png"})
	expectError(t, resp, http.StatusConflict, KindConflict)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/export", nil)
	expectError(t, resp, http.StatusConflict, KindConflict)
}

func TestEditorHandlers(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")
	env.captureAll(t, s)
	waitUntil(t, "completion", func() bool { return s.State().Editable })
	base := "/api/sessions/" + s.ID()

	resp := env.do(t, http.MethodPost, base+"/stickers", dto.StickerRequest{Photo: 1, Image: "/stickers/meow1.png"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Add sticker: expected 200, got %d", resp.StatusCode)
	}
	snap := decode[editor.Snapshot](t, resp)
	if len(snap.Stickers[1]) != 1 {
		t.Fatalf("Expected one sticker on photo 1, got %v", snap.Stickers)
	}
	if snap.Selected == nil || *snap.Selected != (model.StickerRef{Photo: 1, Index: 0}) {
		t.Errorf("New sticker should be selected, got %v", snap.Selected)
	}
	x0 := snap.Stickers[1][0].X

	resp = env.do(t, http.MethodPost, base+"/stickers", dto.StickerRequest{Photo: 0, Image: "/stickers/nope.png"})
	expectError(t, resp, http.StatusBadRequest, KindValidation)

	resp = env.do(t, http.MethodPost, base+"/drag/begin", dto.DragRequest{Photo: 1, Index: 0, Mode: "move", X: 100, Y: 100})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Begin drag: expected 200, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, base+"/drag/move", dto.DragRequest{X: 120, Y: 100, ContainerWidth: 400, ContainerHeight: 770})
	snap = decode[editor.Snapshot](t, resp)
	if snap.Stickers[1][0].X <= x0 {
		t.Errorf("Expected sticker to move right from %.1f, got %.1f", x0, snap.Stickers[1][0].X)
	}
	resp = env.do(t, http.MethodPost, base+"/drag/end", nil)
	snap = decode[editor.Snapshot](t, resp)
	if snap.Dragging != "" {
		t.Errorf("Drag should have ended, got %q", snap.Dragging)
	}

	resp = env.do(t, http.MethodPost, base+"/drag/begin", dto.DragRequest{Photo: 1, Index: 0, Mode: "spin"})
	expectError(t, resp, http.StatusBadRequest, KindValidation)

	resp = env.do(t, http.MethodPost, base+"/selection/clear", dto.SelectionRequest{Hit: false})
	snap = decode[editor.Snapshot](t, resp)
	if snap.Selected != nil {
		t.Errorf("Expected selection cleared, got %v", snap.Selected)
	}

	resp = env.do(t, http.MethodPost, base+"/stickers/1/0/select", nil)
	snap = decode[editor.Snapshot](t, resp)
	if snap.Selected == nil {
		t.Error("Expected sticker to be selected")
	}

	resp = env.do(t, http.MethodPut, base+"/background", dto.BackgroundRequest{Kind: "color", Color: "#ADD8E6"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Background: expected 200, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPut, base+"/background", dto.BackgroundRequest{Kind: "template", Template: "Design 9"})
	expectError(t, resp, http.StatusBadRequest, KindValidation)
	resp = env.do(t, http.MethodPut, base+"/background", dto.BackgroundRequest{Kind: "color", Color: "blue"})
	expectError(t, resp, http.StatusBadRequest, KindValidation)

	resp = env.do(t, http.MethodPut, base+"/overlays", dto.OverlaysRequest{ShowDate: false, ShowLogo: true})
	snap = decode[editor.Snapshot](t, resp)
	if snap.Overlays.ShowDate || !snap.Overlays.ShowLogo {
		t.Errorf("Unexpected overlays %+v", snap.Overlays)
	}

	resp = env.do(t, http.MethodDelete, base+"/stickers/1/0", nil)
	snap = decode[editor.Snapshot](t, resp)
	if len(snap.Stickers[1]) != 0 {
		t.Errorf("Expected sticker removed, got %v", snap.Stickers[1])
	}
	resp = env.do(t, http.MethodDelete, base+"/stickers/1/0", nil)
	expectError(t, resp, http.StatusBadRequest, KindValidation)
	resp = env.do(t, http.MethodDelete, base+"/stickers/x/0", nil)
	expectError(t, resp, http.StatusBadRequest, KindValidation)
}

func TestPreviewHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")

	resp := env.do(t, http.MethodGet, "/api/sessions/"+s.ID()+"/preview", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	doc := decode[compose.Document](t, resp)
	if doc.Width != 400 || doc.Height != 770 {
		t.Errorf("Expected 400x770 document, got %dx%d", doc.Width, doc.Height)
	}
	if len(doc.Layers) == 0 {
		t.Error("Expected at least the background layer")
	}
}

// ========================================
// Export Tests
// ========================================

func TestExportHandler(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSession(t, "2x6")
	env.captureAll(t, s)
	waitUntil(t, "completion", func() bool { return s.State().Editable })

	env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/stickers", dto.StickerRequest{Photo: 0, Image: "/stickers/meow1.png"})

	resp := env.do(t, http.MethodPost, "/api/sessions/"+s.ID()+"/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", resp.Header.Get("Content-Type"))
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="snappy-2x6-`) {
		t.Errorf("Unexpected Content-Disposition %q", disposition)
	}
	if resp.Header.Get("X-Strip-Id") == "" {
		t.Error("Expected X-Strip-Id header")
	}

	cfg, err := jpeg.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("Export is not a JPEG: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 770 {
		t.Errorf("Expected 400x770, got %dx%d", cfg.Width, cfg.Height)
	}

	strips, err := env.repo.GetAll(nil)
	if err != nil || len(strips) != 1 {
		t.Fatalf("Expected one stored strip, got %d (%v)", len(strips), err)
	}
	if _, err := os.Stat(env.store.Path(&strips[0])); err != nil {
		t.Errorf("Strip file missing: %v", err)
	}
}

// ========================================
// Gallery Tests
// ========================================

func saveStrip(t *testing.T, env *testEnv, layoutID string, at time.Time) *model.Strip {
	t.Helper()
	spec, err := layout.Lookup(layoutID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	strip := &model.Strip{
		Filename:  compose.Filename("snappy", layoutID, at),
		Layout:    layoutID,
		Photos:    spec.Photos,
		Width:     spec.Width,
		Height:    spec.Height,
		CreatedAt: at,
	}
	if err := env.store.Save(strip, jpegFrame(t)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return strip
}

func TestGetStripsHandler(t *testing.T) {
	env := newTestEnv(t)
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		saveStrip(t, env, "2x6", at.Add(time.Duration(i)*time.Hour))
	}
	saveStrip(t, env, "4x6", at.Add(24*time.Hour))

	resp := env.do(t, http.MethodGet, "/api/strips?page=2&limit=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	data := decode[dto.StripsData](t, resp)

	if data.Length != 4 || data.TotalPages != 2 || data.CurrentPage != 2 || data.Limit != 2 {
		t.Errorf("Unexpected pagination %+v", data)
	}
	if len(data.Strips) != 2 {
		t.Fatalf("Expected 2 strips on page 2, got %d", len(data.Strips))
	}
	if data.Size <= 0 {
		t.Errorf("Expected total size, got %d", data.Size)
	}
	if !strings.HasSuffix(data.Strips[0].ViewURL, "/view") {
		t.Errorf("Unexpected view url %s", data.Strips[0].ViewURL)
	}

	resp = env.do(t, http.MethodGet, "/api/strips?layout=4x6", nil)
	data = decode[dto.StripsData](t, resp)
	if data.Length != 1 || data.Strips[0].Layout != "4x6" {
		t.Errorf("Layout filter failed: %+v", data)
	}

	resp = env.do(t, http.MethodGet, "/api/strips?dateAfter=2025-06-16", nil)
	data = decode[dto.StripsData](t, resp)
	if data.Length != 1 {
		t.Errorf("Date filter: expected 1, got %d", data.Length)
	}

	resp = env.do(t, http.MethodGet, "/api/strips/stats", nil)
	stats := decode[dto.StatsResponse](t, resp)
	if stats.StripStats == nil || stats.TotalStrips != 4 || stats.PerLayout["2x6"] != 3 {
		t.Errorf("Unexpected stats %+v", stats.StripStats)
	}
	if stats.Disk == nil || stats.Disk.TotalBytes == 0 {
		t.Errorf("Expected disk usage, got %+v", stats.Disk)
	}
}

func TestStripViewAndDownload(t *testing.T) {
	env := newTestEnv(t)
	strip := saveStrip(t, env, "2x6", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/strips/%d/view", strip.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("View: expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Disposition") != "" {
		t.Error("View without download must be inline")
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/strips/%d/view?download=1", strip.ID), nil)
	if !strings.Contains(resp.Header.Get("Content-Disposition"), strip.Filename) {
		t.Errorf("Expected attachment, got %q", resp.Header.Get("Content-Disposition"))
	}

	resp = env.do(t, http.MethodGet, "/downloads/"+strip.Filename, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Download: expected 200, got %d", resp.StatusCode)
	}
	if _, err := jpeg.DecodeConfig(resp.Body); err != nil {
		t.Errorf("Download is not a JPEG: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		status int
		kind   string
	}{
		{"bad name", "/downloads/notes.txt", http.StatusBadRequest, KindValidation},
		{"unknown strip", "/downloads/snappy-2x6-1.jpg", http.StatusNotFound, KindNotFound},
		{"bad id", "/api/strips/abc/view", http.StatusBadRequest, KindValidation},
		{"missing id", "/api/strips/999/view", http.StatusNotFound, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodGet, tt.path, nil), tt.status, tt.kind)
		})
	}
}

func TestStripQRHandler(t *testing.T) {
	env := newTestEnv(t)
	strip := saveStrip(t, env, "3x4", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/strips/%d/qr", strip.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("Expected image/png, got %s", resp.Header.Get("Content-Type"))
	}
	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("QR code is not a PNG: %v", err)
	}
	if cfg.Width != qrSize {
		t.Errorf("Expected %dpx QR code, got %d", qrSize, cfg.Width)
	}

	if got := DownloadURL(env.cfg, strip); got != "http://booth.test/downloads/"+strip.Filename {
		t.Errorf("Unexpected download url %s", got)
	}
}

func TestDeleteAndClearStrips(t *testing.T) {
	env := newTestEnv(t)
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	first := saveStrip(t, env, "2x6", at)
	saveStrip(t, env, "2x6", at.Add(time.Minute))

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/strips/%d", first.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Delete: expected 200, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(env.store.Path(first)); !os.IsNotExist(err) {
		t.Errorf("Expected file removed, stat returned %v", err)
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/strips/%d", first.ID), nil)
	expectError(t, resp, http.StatusNotFound, KindNotFound)

	resp = env.do(t, http.MethodDelete, "/api/strips", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Clear: expected 204, got %d", resp.StatusCode)
	}
	count, err := env.repo.GetTotalCount(nil)
	if err != nil || count != 0 {
		t.Errorf("Expected empty gallery, got %d (%v)", count, err)
	}
}
