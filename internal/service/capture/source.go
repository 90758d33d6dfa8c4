package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"photobooth/internal/imaging"
	"sync"
)

var (
	ErrNoFrame      = errors.New("no camera frame available")
	ErrSourceClosed = errors.New("frame source closed")
)

// CameraAccessError reports that the camera could not be acquired, for
// example permission denied or no device.
type CameraAccessError struct {
	Reason string
	Err    error
}

func (e *CameraAccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera access failed: %s: %v", e.Reason, e.Err)
	}
	return "camera access failed: " + e.Reason
}

func (e *CameraAccessError) Unwrap() error {
	return e.Err
}

// FrameSource produces live camera frames.
type FrameSource interface {
	// Open acquires the device. It is called once before Read.
	Open(ctx context.Context) error
	// Read returns the most recent frame.
	Read() (image.Image, error)
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// PushSource holds the latest frame pushed by a remote camera, typically a
// browser streaming JPEG frames over a websocket.
type PushSource struct {
	mu     sync.RWMutex
	frame  image.Image
	denied error
	closed bool
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (p *PushSource) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrSourceClosed
	}
	return p.denied
}

// Push decodes a JPEG frame and makes it current.
func (p *PushSource) Push(data []byte) error {
	img, err := imaging.DecodeJPEG(data)
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	p.PushImage(img)
	return nil
}

// PushImage makes img the current frame.
func (p *PushSource) PushImage(img image.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.frame = img
	p.denied = nil
}

// Deny records that the remote side could not acquire its camera.
func (p *PushSource) Deny(reason string) *CameraAccessError {
	err := &CameraAccessError{Reason: reason}
	p.mu.Lock()
	p.denied = err
	p.frame = nil
	p.mu.Unlock()
	return err
}

func (p *PushSource) Read() (image.Image, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrSourceClosed
	}
	if p.frame == nil {
		return nil, ErrNoFrame
	}
	return p.frame, nil
}

func (p *PushSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.frame = nil
	return nil
}
