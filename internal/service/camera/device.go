// Package camera opens a local webcam through OpenCV.
package camera

import (
	"context"
	"fmt"
	"image"
	"photobooth/internal/logger"
	"photobooth/internal/service/capture"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Requested capture resolution, matching what browsers are asked for.
const (
	FrameWidth  = 640
	FrameHeight = 480

	retryDelay = 50 * time.Millisecond
)

// DeviceSource reads frames from a local video device. A background loop
// keeps the latest frame so Read never blocks on the device.
type DeviceSource struct {
	deviceID int
	logger   *logger.Logger

	mu      sync.RWMutex
	capture *gocv.VideoCapture
	frame   image.Image
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
}

// NewDeviceSource prepares a source for device id; nothing is opened yet.
func NewDeviceSource(deviceID int, logger *logger.Logger) *DeviceSource {
	return &DeviceSource{deviceID: deviceID, logger: logger}
}

// Open acquires the device and starts the grab loop.
func (d *DeviceSource) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return capture.ErrSourceClosed
	}
	if d.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return &capture.CameraAccessError{Reason: fmt.Sprintf("device %d", d.deviceID), Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return &capture.CameraAccessError{Reason: fmt.Sprintf("device %d not available", d.deviceID)}
	}
	vc.Set(gocv.VideoCaptureFrameWidth, FrameWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, FrameHeight)

	loopCtx, cancel := context.WithCancel(context.Background())
	d.capture = vc
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.grab(loopCtx, vc, d.done)
	d.logger.Info("Camera device %d opened", d.deviceID)
	return nil
}

// grab reads frames until ctx is cancelled. The Mat is reused between reads.
func (d *DeviceSource) grab(ctx context.Context, vc *gocv.VideoCapture, done chan struct{}) {
	defer close(done)

	mat := gocv.NewMat()
	defer mat.Close()

	failures := 0
	for ctx.Err() == nil {
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures == 30 {
				d.logger.Warning("Camera device %d returns no frames", d.deviceID)
			}
			time.Sleep(retryDelay)
			continue
		}
		failures = 0

		img, err := mat.ToImage()
		if err != nil {
			d.logger.Error("Error converting camera frame: %v", err)
			continue
		}

		d.mu.Lock()
		d.frame = img
		d.mu.Unlock()
	}
}

func (d *DeviceSource) Read() (image.Image, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, capture.ErrSourceClosed
	}
	if d.frame == nil {
		return nil, capture.ErrNoFrame
	}
	return d.frame, nil
}

// Close stops the grab loop and releases the device.
func (d *DeviceSource) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.frame = nil
	vc, cancel, done := d.capture, d.cancel, d.done
	d.capture = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	d.logger.Info("Camera device %d released", d.deviceID)
	return vc.Close()
}
