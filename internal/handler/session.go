package handler

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"photobooth/internal/compose"
	"photobooth/internal/dto"
	"photobooth/internal/logger"
	"photobooth/internal/service/booth"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	// DefaultThumbnailSize bounds the thumbnail row images.
	DefaultThumbnailSize = 160
	maxThumbnailSize     = 640
	frameQuality         = 80
)

// session resolves the {id} URL parameter.
func session(manager *booth.Manager, r *http.Request) (*booth.Session, error) {
	return manager.Get(chi.URLParam(r, "id"))
}

// CreateSessionHandler starts a session and returns its state.
func CreateSessionHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateSessionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		s, err := manager.Create(r.Context(), booth.CreateParams{
			Layout: req.Layout,
			Timer:  req.Timer,
			Filter: req.Filter,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}

		w.Header().Set("Location", "/api/sessions/"+s.ID())
		writeJSONStatus(w, logger, http.StatusCreated, s.State())
	}
}

// GetSessionHandler returns the session summary.
func GetSessionHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, s.State())
	}
}

// DeleteSessionHandler closes a session and releases its camera.
func DeleteSessionHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Delete(chi.URLParam(r, "id")); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StartCaptureHandler arms the countdown for the next photo.
func StartCaptureHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if err := s.StartCapture(); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSONStatus(w, logger, http.StatusAccepted, s.State().Capture)
	}
}

// CaptureSettingsHandler replaces the timer, filter, auto and mirror
// controls.
func CaptureSettingsHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		settings := s.State().Capture.Settings
		if err := decodeJSON(w, r, &settings); err != nil {
			writeError(w, logger, err)
			return
		}

		status, err := s.UpdateSettings(settings)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, status)
	}
}

// RetakeHandler discards the photos and edits.
func RetakeHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, s.Retake())
	}
}

// ThumbnailHandler serves a captured photo scaled for the thumbnail row.
func ThumbnailHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		index, err := intParam(r, "photo")
		if err != nil {
			writeError(w, logger, err)
			return
		}

		size := atoiDefault(r.URL.Query().Get("size"), DefaultThumbnailSize)
		if size > maxThumbnailSize {
			size = maxThumbnailSize
		}

		thumb, err := s.Thumbnail(index, uint(size))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJPEG(w, logger, thumb, frameQuality)
	}
}

// FrameHandler serves the current live frame exactly as a capture would
// store it.
func FrameHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		frame, err := s.Frame()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJPEG(w, logger, frame, frameQuality)
	}
}

// PreviewHandler returns the positioned layers of the strip.
func PreviewHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		doc, err := s.Preview(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, doc)
	}
}

// ExportHandler renders, stores and downloads the finished strip.
func ExportHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strip, data, err := manager.Export(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strip.Filename))
		if strip.ID != 0 {
			w.Header().Set("X-Strip-Id", strconv.FormatInt(strip.ID, 10))
		}
		w.Write(data)
	}
}

// writeJPEG encodes img before writing headers so a failure can still be
// reported as JSON.
func writeJPEG(w http.ResponseWriter, logger *logger.Logger, img image.Image, quality int) {
	var buf bytes.Buffer
	if err := compose.EncodeJPEG(&buf, img, quality); err != nil {
		writeError(w, logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
