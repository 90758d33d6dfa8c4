package dto

// CreateSessionRequest starts a booth session.
type CreateSessionRequest struct {
	Layout string `json:"layout"`
	Timer  int    `json:"timer"`
	Filter string `json:"filter"`
}

// StickerRequest adds a catalog sticker to a photo.
type StickerRequest struct {
	Photo int    `json:"photo"`
	Image string `json:"image"`
}

// DragRequest carries a pointer event. Photo, Index and Mode are only read
// when a drag begins; the container size only when it moves.
type DragRequest struct {
	Photo           int     `json:"photo"`
	Index           int     `json:"index"`
	Mode            string  `json:"mode"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`
}

// SelectionRequest reports a click on the strip.
type SelectionRequest struct {
	Hit bool `json:"hit"`
}

// BackgroundRequest picks a background: kind is "color", "template" or
// "plain".
type BackgroundRequest struct {
	Kind     string `json:"kind"`
	Color    string `json:"color,omitempty"`
	Template string `json:"template,omitempty"`
}

// OverlaysRequest toggles the footer text.
type OverlaysRequest struct {
	ShowDate bool `json:"showDate"`
	ShowLogo bool `json:"showLogo"`
}

// CameraMessage is a control message from a remote camera client.
type CameraMessage struct {
	Type   string `json:"type"` // "denied"
	Reason string `json:"reason"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
