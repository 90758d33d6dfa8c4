package dto

import "photobooth/internal/model"

// StatsResponse is the admin statistics payload.
type StatsResponse struct {
	*model.StripStats
	Disk *model.DiskUsage `json:"disk,omitempty"`
}
