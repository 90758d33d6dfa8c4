package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"photobooth/internal/logger"
	"sync"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

const (
	maxPacketSize   = 65535
	maxUDPFrameSize = 4 << 20
)

// UDPSource receives a network camera that sends each JPEG frame as a run
// of datagrams: the first starts with the SOI marker, the last ends with
// EOI. Frames are reassembled per sender and the newest one wins.
type UDPSource struct {
	port   int
	logger *logger.Logger
	frames *PushSource

	mu     sync.Mutex
	conn   *net.UDPConn
	done   chan struct{}
	closed bool
}

func NewUDPSource(port int, logger *logger.Logger) *UDPSource {
	return &UDPSource{port: port, logger: logger, frames: NewPushSource()}
}

// Open binds the UDP port. Only one session can hold it at a time.
func (u *UDPSource) Open(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrSourceClosed
	}
	if u.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", u.port))
	if err != nil {
		return &CameraAccessError{Reason: fmt.Sprintf("udp port %d", u.port), Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return &CameraAccessError{Reason: fmt.Sprintf("udp port %d", u.port), Err: err}
	}

	u.conn = conn
	u.done = make(chan struct{})
	go u.receive(conn, u.done)

	u.logger.Info("UDP camera listening on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Open.
func (u *UDPSource) Addr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

func (u *UDPSource) receive(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	packet := make([]byte, maxPacketSize)
	buffers := make(map[string]*bytes.Buffer)

	for {
		n, remote, err := conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			u.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		sender := remote.IP.String()
		frame, ok := buffers[sender]
		if !ok {
			frame = new(bytes.Buffer)
			buffers[sender] = frame
		}

		data := packet[:n]
		if bytes.HasPrefix(data, jpegHeader) {
			frame.Reset()
		}
		if frame.Len()+len(data) > maxUDPFrameSize {
			u.logger.Warning("Dropping oversized frame from %s", sender)
			frame.Reset()
			continue
		}
		frame.Write(data)

		if bytes.HasSuffix(data, jpegFooter) {
			if err := u.frames.Push(frame.Bytes()); err != nil {
				u.logger.Warning("Dropping corrupt frame from %s: %v", sender, err)
			}
			frame.Reset()
		}
	}
}

func (u *UDPSource) Read() (image.Image, error) {
	return u.frames.Read()
}

// Close releases the port and waits for the receive loop to exit.
func (u *UDPSource) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	conn, done := u.conn, u.done
	u.mu.Unlock()

	u.frames.Close()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}
