package model

import "time"

// Strip represents an exported strip record.
type Strip struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Layout    string    `json:"layout"`
	Photos    int       `json:"photos"`
	Template  string    `json:"template"` // template name, empty for colour backgrounds
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	CreatedAt time.Time `json:"createdAt"`
}

// StripStats contains statistics about stored strips.
type StripStats struct {
	TotalStrips    int            `json:"total_strips"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerLayout      map[string]int `json:"per_layout"`
	PerTemplate    map[string]int `json:"per_template"`
}

// DiskUsage describes the volume the strips are written to.
type DiskUsage struct {
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}
