// StripsData is a paginated response payload for the admin gallery.
package dto

type StripsData struct {
	Strips      []StripInfo `json:"strips"`
	ExportDir   string      `json:"exportDir"`
	Size        int64       `json:"size"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
