package route

import (
	"net/http"
	"os"
	"path/filepath"
	"photobooth/internal/config"
	"photobooth/internal/handler"
	"photobooth/internal/logger"
	"photobooth/internal/middleware"
	"photobooth/internal/repository"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/storage"
	"photobooth/internal/service/websocket"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds plain API calls; websocket routes are exempt.
const requestTimeout = 30 * time.Second

// dynamicHTMLHandler serves /path as <dir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the booth API, the websocket endpoints, static
// assets and the admin surface behind cookie authentication.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, manager *booth.Manager,
	hub *websocket.HubService, repo repository.StripRepository, store *storage.StripStore) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Static assets: stickers, backgrounds and pages.
	r.Handle(handler.AssetPrefix+"/*", http.StripPrefix(handler.AssetPrefix+"/", http.FileServer(http.Dir(cfg.AssetDirectory))))

	// Websockets run for the whole session and skip the request timeout.
	r.Get("/ws/sessions/{id}", handler.ViewWebsocketHandler(manager, hub, logger))
	r.Get("/ws/sessions/{id}/camera", handler.CameraWebsocketHandler(manager, logger))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Get("/api/catalog", handler.CatalogHandler(manager.Catalog(), logger))
		r.Get("/downloads/{filename}", handler.DownloadStripHandler(logger, repo, store))

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", handler.CreateSessionHandler(manager, logger))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.GetSessionHandler(manager, logger))
				r.Delete("/", handler.DeleteSessionHandler(manager, logger))

				// Capture
				r.Post("/capture", handler.StartCaptureHandler(manager, logger))
				r.Put("/capture/settings", handler.CaptureSettingsHandler(manager, logger))
				r.Post("/retake", handler.RetakeHandler(manager, logger))
				r.Get("/photos/{photo}/thumb", handler.ThumbnailHandler(manager, logger))
				r.Get("/frame", handler.FrameHandler(manager, logger))

				// Editor
				r.Get("/preview", handler.PreviewHandler(manager, logger))
				r.Post("/stickers", handler.AddStickerHandler(manager, logger))
				r.Delete("/stickers/{photo}/{index}", handler.RemoveStickerHandler(manager, logger))
				r.Post("/stickers/{photo}/{index}/select", handler.SelectStickerHandler(manager, logger))
				r.Post("/selection/clear", handler.ClearSelectionHandler(manager, logger))
				r.Post("/drag/begin", handler.BeginDragHandler(manager, logger))
				r.Post("/drag/move", handler.MoveDragHandler(manager, logger))
				r.Post("/drag/end", handler.EndDragHandler(manager, logger))
				r.Put("/background", handler.BackgroundHandler(manager, logger))
				r.Put("/overlays", handler.OverlaysHandler(manager, logger))

				// Export
				r.Post("/export", handler.ExportHandler(manager, logger))
			})
		})

		// Auth endpoints
		r.Post("/auth/login", handler.LoginHandler(cfg, logger))
		r.Post("/auth/logout", handler.LogoutHandler)
		r.Get("/auth/logout", handler.LogoutHandler)

		// Admin: strip gallery and logs
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(cfg.Password))

			r.Get("/api/strips", handler.GetStripsHandler(cfg, logger, repo))
			r.Get("/api/strips/stats", handler.StripStatsHandler(logger, repo, store))
			r.Get("/api/strips/{id}/view", handler.ViewStripHandler(logger, repo, store))
			r.Get("/api/strips/{id}/qr", handler.StripQRHandler(cfg, logger, repo))
			r.Delete("/api/strips/{id}", handler.DeleteStripHandler(logger, store))
			r.Delete("/api/strips", handler.ClearStripsHandler(logger, store))

			r.Get("/logs/{level}", handler.ShowLogsHandler(logger))
			r.Post("/logs/{level}/clear", handler.ClearLogsHandler(logger))

			r.Get("/admin", dynamicHTMLHandler(cfg.AssetDirectory))
		})

		// Automatic HTML handler mapping, for example /login -> <assets>/login.html
		r.Get("/*", dynamicHTMLHandler(cfg.AssetDirectory))
	})

	return r
}
