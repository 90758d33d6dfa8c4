package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"photobooth/internal/assets"
	"photobooth/internal/dto"
	"photobooth/internal/editor"
	"photobooth/internal/layout"
	"photobooth/internal/logger"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/capture"
	"photobooth/internal/service/storage"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Error kinds reported in ErrorResponse.Error.
const (
	KindAssetLoad    = "asset_load"
	KindCameraAccess = "camera_access"
	KindNoFrame      = "no_frame"
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindInternal     = "internal"
)

var errInvalidRequest = errors.New("invalid request")

// classify maps an error to its HTTP status and kind.
func classify(err error) (int, string) {
	var assetErr *assets.AssetLoadError
	var cameraErr *capture.CameraAccessError

	switch {
	case errors.As(err, &assetErr):
		return http.StatusBadGateway, KindAssetLoad
	case errors.As(err, &cameraErr):
		return http.StatusServiceUnavailable, KindCameraAccess
	case errors.Is(err, capture.ErrNoFrame), errors.Is(err, capture.ErrSourceClosed):
		return http.StatusServiceUnavailable, KindNoFrame

	case errors.Is(err, booth.ErrSessionNotFound), errors.Is(err, storage.ErrStripNotFound):
		return http.StatusNotFound, KindNotFound

	case errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrComplete),
		errors.Is(err, capture.ErrClosed),
		errors.Is(err, editor.ErrDragActive),
		errors.Is(err, booth.ErrNotComplete),
		errors.Is(err, booth.ErrNotRemote),
		errors.Is(err, storage.ErrStripExists):
		return http.StatusConflict, KindConflict

	case errors.Is(err, errInvalidRequest),
		errors.Is(err, layout.ErrUnknownLayout),
		errors.Is(err, capture.ErrUnknownFilter),
		errors.Is(err, capture.ErrInvalidTime),
		errors.Is(err, editor.ErrPhotoOutOfRange),
		errors.Is(err, editor.ErrNoSticker),
		errors.Is(err, editor.ErrInvalidDragMode),
		errors.Is(err, editor.ErrInvalidColor),
		errors.Is(err, booth.ErrUnknownSticker),
		errors.Is(err, booth.ErrUnknownTemplate),
		errors.Is(err, booth.ErrUnknownTimer),
		errors.Is(err, booth.ErrUnknownBackground):
		return http.StatusBadRequest, KindValidation
	}
	return http.StatusInternalServerError, KindInternal
}

// writeError sends err as an ErrorResponse. Server-side failures are logged.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status, kind := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		message = "Internal Server Error"
	} else if status >= 500 {
		logger.Warning("Request failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{Error: kind, Message: message})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, v interface{}) {
	writeJSONStatus(w, logger, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// decodeJSON reads a request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

// intParam reads an integer URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidRequest, name)
	}
	return v, nil
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
