package handler

import (
	"net/http"
	"photobooth/internal/assets"
	"photobooth/internal/layout"
	"photobooth/internal/logger"
	"photobooth/internal/model"
	"photobooth/internal/service/capture"
)

// AssetPrefix is where asset references are served from.
const AssetPrefix = "/assets"

type filterInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	CSS   string `json:"css"`
}

type catalogResponse struct {
	AssetBase    string           `json:"assetBase"`
	Brand        assets.Brand     `json:"brand"`
	Layouts      []layout.Spec    `json:"layouts"`
	Timers       []int            `json:"timers"`
	DefaultTimer int              `json:"defaultTimer"`
	Filters      []filterInfo     `json:"filters"`
	Stickers     []string         `json:"stickers"`
	Templates    []model.Template `json:"templates"`
	Swatches     []string         `json:"swatches"`
}

// CatalogHandler returns everything the booth UI offers: layouts, timers,
// filters with their CSS preview, stickers, templates and swatches.
func CatalogHandler(catalog *assets.Catalog, logger *logger.Logger) http.HandlerFunc {
	filters := make([]filterInfo, 0, len(catalog.Filters))
	for _, f := range catalog.Filters {
		info := filterInfo{ID: f.ID, Label: f.Label}
		if parsed, err := capture.ParseFilter(f.ID); err == nil {
			info.CSS = parsed.CSS()
		}
		filters = append(filters, info)
	}

	resp := catalogResponse{
		AssetBase:    AssetPrefix,
		Brand:        catalog.Brand,
		Layouts:      layout.All(),
		Timers:       catalog.Timers,
		DefaultTimer: catalog.DefaultTimer,
		Filters:      filters,
		Stickers:     catalog.Stickers,
		Templates:    catalog.Templates,
		Swatches:     catalog.Swatches,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, resp)
	}
}
