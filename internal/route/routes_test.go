package route

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"photobooth/internal/config"
	"photobooth/internal/logger"
	"photobooth/internal/middleware"
	"photobooth/internal/repository/sqlite"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/storage"
	"photobooth/internal/service/websocket"
	"strings"
	"testing"
	"time"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	tempDir := t.TempDir()
	assetDir := filepath.Join(tempDir, "public")
	for name, content := range map[string]string{
		"index.html":         "<h1>booth</h1>",
		"login.html":         "<form></form>",
		"admin.html":         "<h1>gallery</h1>",
		"stickers/meow1.png": "png",
	} {
		path := filepath.Join(assetDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	cfg := &config.Config{
		Password:        "secret",
		PublicURL:       "http://booth.test",
		AssetDirectory:  assetDir,
		ExportDirectory: filepath.Join(tempDir, "exports"),
		PreviewFPS:      10,
		JPEGQuality:     90,
		SessionTTL:      time.Minute,
		JanitorInterval: time.Hour,
	}
	log := logger.Discard()

	db, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	repo := sqlite.NewStripRepository(db)
	store := storage.NewStripStore(cfg.ExportDirectory, repo, log)
	hub := websocket.NewHubService(log)
	go hub.Run(ctx)
	manager := booth.NewManager(cfg, booth.Options{Store: store, Hub: hub}, log)
	t.Cleanup(manager.CloseAll)

	server := httptest.NewServer(SetupRoutes(cfg, log, manager, hub, repo, store))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, server *httptest.Server, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ========================================
// Routing Tests
// ========================================

func TestRoutes_Public(t *testing.T) {
	server := setupServer(t)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "booth"},
		{"/login", http.StatusOK, "<form>"},
		{"/missing-page", http.StatusNotFound, ""},
		{"/assets/stickers/meow1.png", http.StatusOK, "png"},
		{"/api/catalog", http.StatusOK, "layouts"},
		{"/api/sessions/unknown", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, server, tt.path, nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("Expected body to contain %q, got %q", tt.body, body)
			}
		})
	}
}

func TestRoutes_AdminRequiresCookie(t *testing.T) {
	server := setupServer(t)
	cookie := &http.Cookie{Name: middleware.AuthCookie, Value: middleware.AuthToken("secret")}

	tests := []struct {
		path      string
		anonymous int
		admin     int
	}{
		{"/api/strips", http.StatusUnauthorized, http.StatusOK},
		{"/api/strips/stats", http.StatusUnauthorized, http.StatusOK},
		{"/admin", http.StatusSeeOther, http.StatusOK},
		{"/logs/info", http.StatusSeeOther, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if resp := get(t, server, tt.path, nil); resp.StatusCode != tt.anonymous {
				t.Errorf("Anonymous: expected %d, got %d", tt.anonymous, resp.StatusCode)
			}
			if resp := get(t, server, tt.path, cookie); resp.StatusCode != tt.admin {
				t.Errorf("Admin: expected %d, got %d", tt.admin, resp.StatusCode)
			}
		})
	}
}

func TestRoutes_DownloadIsPublic(t *testing.T) {
	server := setupServer(t)

	resp := get(t, server, "/downloads/snappy-2x6-1750000000000.jpg", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown strip, got %d", resp.StatusCode)
	}
}

func TestDynamicHTMLHandler_StaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("ok"), 0644)
	os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.html"), []byte("no"), 0644)

	handler := dynamicHTMLHandler(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret"
	handler(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for path outside directory, got %d", w.Code)
	}
}
