package handler

import (
	"fmt"
	"net/http"
	"photobooth/internal/compose"
	"photobooth/internal/config"
	"photobooth/internal/dto"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/repository"
	"photobooth/internal/service/storage"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// stripByID resolves the {id} URL parameter to a stored strip.
func stripByID(repo repository.StripRepository, r *http.Request) (*model.Strip, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: strip id must be an integer", errInvalidRequest)
	}
	strip, err := repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if strip == nil {
		return nil, storage.ErrStripNotFound
	}
	return strip, nil
}

// DownloadURL is the public link a guest uses to fetch a strip.
func DownloadURL(cfg *config.Config, strip *model.Strip) string {
	return cfg.PublicURL + "/downloads/" + strip.Filename
}

// GetStripsHandler returns a filtered, paginated list of exported strips.
func GetStripsHandler(cfg *config.Config, logger *logger.Logger, repo repository.StripRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.StripFilters{
			Layout:     q.Get("layout"),
			Template:   q.Get("template"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		strips, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying strips from database: %v", err)
			writeError(w, logger, err)
			return
		}

		totalSize, err := repo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting export directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting strips: %v", err)
			totalCount = len(strips)
		}

		infos := make([]dto.StripInfo, 0, len(strips))
		for _, s := range strips {
			base := fmt.Sprintf("/api/strips/%d", s.ID)
			infos = append(infos, dto.StripInfo{
				ID:       s.ID,
				Name:     s.Filename,
				Layout:   s.Layout,
				Template: s.Template,
				Size:     s.FileSize,
				Created:  s.CreatedAt,
				ViewURL:  base + "/view",
				QRURL:    base + "/qr",
			})
		}

		data := dto.StripsData{
			Strips:      infos,
			ExportDir:   cfg.ExportDirectory,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		writeJSON(w, logger, data)
	}
}

// StripStatsHandler returns counts per layout and template and the free
// space left for new exports.
func StripStatsHandler(logger *logger.Logger, repo repository.StripRepository, store *storage.StripStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.GetStats()
		if err != nil {
			writeError(w, logger, err)
			return
		}

		usage, err := store.DiskUsage()
		if err != nil {
			logger.Warning("Error reading disk usage: %v", err)
		}
		writeJSON(w, logger, dto.StatsResponse{StripStats: stats, Disk: usage})
	}
}

// ViewStripHandler serves a stored strip. ?download=1 asks the browser to
// save it.
func ViewStripHandler(logger *logger.Logger, repo repository.StripRepository, store *storage.StripStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strip, err := stripByID(repo, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if r.URL.Query().Get("download") != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strip.Filename))
		}
		http.ServeFile(w, r, store.Path(strip))
	}
}

// StripQRHandler returns a PNG QR code of the strip's public download link.
func StripQRHandler(cfg *config.Config, logger *logger.Logger, repo repository.StripRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strip, err := stripByID(repo, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		png, err := qrcode.Encode(DownloadURL(cfg, strip), qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, logger, fmt.Errorf("failed to encode qr code: %w", err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Write(png)
	}
}

// DownloadStripHandler is the public download behind the QR code. Only
// names that look like exported strips and are recorded are served.
func DownloadStripHandler(logger *logger.Logger, repo repository.StripRepository, store *storage.StripStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if _, _, _, err := compose.ParseFilename(name); err != nil {
			writeError(w, logger, fmt.Errorf("%w: %v", errInvalidRequest, err))
			return
		}

		strip, err := repo.GetByFilename(name)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if strip == nil {
			writeError(w, logger, storage.ErrStripNotFound)
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strip.Filename))
		http.ServeFile(w, r, store.Path(strip))
	}
}

// DeleteStripHandler removes a strip from disk and database.
func DeleteStripHandler(logger *logger.Logger, store *storage.StripStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, fmt.Errorf("%w: strip id must be an integer", errInvalidRequest))
			return
		}

		strip, err := store.Delete(id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, map[string]string{"status": "deleted", "filename": strip.Filename})
	}
}

// ClearStripsHandler deletes every exported strip.
func ClearStripsHandler(logger *logger.Logger, store *storage.StripStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
