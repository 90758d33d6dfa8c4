package dto

import (
	"encoding/json"
	"time"
)

// StripInfo is the gallery view of a stored strip.
type StripInfo struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Layout   string    `json:"layout"`
	Template string    `json:"template,omitempty"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	ViewURL  string    `json:"viewUrl"`
	QRURL    string    `json:"qrUrl"`
}

// MarshalJSON formats the creation time as date and time-of-day fields.
func (s StripInfo) MarshalJSON() ([]byte, error) {
	type Alias StripInfo
	return json.Marshal(&struct {
		Alias
		Created   string `json:"created"`
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
	}{
		Alias:     (Alias)(s),
		Created:   s.Created.Format(time.RFC3339),
		Date:      s.Created.Format("02-01-2006"),
		TimeOfDay: s.Created.Format("15:04"),
	})
}
