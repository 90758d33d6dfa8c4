package handler

import (
	"net/http"
	"photobooth/internal/dto"
	"photobooth/internal/editor"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/service/booth"
)

// editHandler decodes a request body into T, runs op on the session and
// responds with the editor snapshot.
func editHandler[T any](manager *booth.Manager, logger *logger.Logger,
	op func(s *booth.Session, r *http.Request, req T) (editor.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		var req T
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, logger, err)
				return
			}
		}

		snap, err := op(s, r, req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, snap)
	}
}

// stickerRef reads the {photo} and {index} URL parameters.
func stickerRef(r *http.Request) (model.StickerRef, error) {
	photo, err := intParam(r, "photo")
	if err != nil {
		return model.StickerRef{}, err
	}
	index, err := intParam(r, "index")
	if err != nil {
		return model.StickerRef{}, err
	}
	return model.StickerRef{Photo: photo, Index: index}, nil
}

// AddStickerHandler places a catalog sticker on a photo and selects it.
func AddStickerHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.StickerRequest) (editor.Snapshot, error) {
		return s.AddSticker(req.Photo, req.Image)
	})
}

// RemoveStickerHandler deletes a sticker.
func RemoveStickerHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, _ struct{}) (editor.Snapshot, error) {
		ref, err := stickerRef(r)
		if err != nil {
			return editor.Snapshot{}, err
		}
		return s.RemoveSticker(ref)
	})
}

// SelectStickerHandler selects a sticker.
func SelectStickerHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, _ struct{}) (editor.Snapshot, error) {
		ref, err := stickerRef(r)
		if err != nil {
			return editor.Snapshot{}, err
		}
		return s.SelectSticker(ref)
	})
}

// ClearSelectionHandler handles a click on the strip background.
func ClearSelectionHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.SelectionRequest) (editor.Snapshot, error) {
		return s.ClearSelection(req.Hit)
	})
}

// BeginDragHandler starts a move or resize gesture.
func BeginDragHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.DragRequest) (editor.Snapshot, error) {
		mode, err := editor.ParseDragMode(req.Mode)
		if err != nil {
			return editor.Snapshot{}, err
		}
		ref := model.StickerRef{Photo: req.Photo, Index: req.Index}
		return s.BeginDrag(ref, mode, req.X, req.Y)
	})
}

// MoveDragHandler applies pointer movement to the active drag.
func MoveDragHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.DragRequest) (editor.Snapshot, error) {
		container := editor.Size{W: req.ContainerWidth, H: req.ContainerHeight}
		return s.MoveDrag(req.X, req.Y, container)
	})
}

// EndDragHandler finishes the active drag.
func EndDragHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, _ struct{}) (editor.Snapshot, error) {
		return s.EndDrag()
	})
}

// BackgroundHandler switches the background.
func BackgroundHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.BackgroundRequest) (editor.Snapshot, error) {
		return s.SetBackground(req.Kind, req.Color, req.Template)
	})
}

// OverlaysHandler toggles the date and logo.
func OverlaysHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return editHandler(manager, logger, func(s *booth.Session, r *http.Request, req dto.OverlaysRequest) (editor.Snapshot, error) {
		return s.SetOverlays(model.Overlays{ShowDate: req.ShowDate, ShowLogo: req.ShowLogo})
	})
}
