package handler

import (
	"encoding/json"
	"net/http"
	"photobooth/internal/config"
	"photobooth/internal/dto"
	"photobooth/internal/logger"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/websocket"
	"time"

	gorilla "github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxFrameBytes  = 4 << 20
	maxViewerBytes = 512
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler registers a viewer of one session with the hub. The
// viewer receives pipeline events as text frames and live preview frames
// as binary JPEG messages.
func ViewWebsocketHandler(manager *booth.Manager, hub *websocket.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(maxViewerBytes)
		connection.SetReadDeadline(time.Now().Add(websocket.PongWait))
		connection.SetPongHandler(func(string) error {
			connection.SetReadDeadline(time.Now().Add(websocket.PongWait))
			return nil
		})

		hub.Register(connection, s.ID())
		defer hub.Unregister(connection)

		logger.Info("Viewer connected to session %s", s.ID())

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
			connection.SetReadDeadline(time.Now().Add(websocket.PongWait))
		}
	}
}

// CameraWebsocketHandler receives a remote camera stream for one session.
// Binary messages are JPEG frames; a text message {"type":"denied"} reports
// that the client could not open its camera.
func CameraWebsocketHandler(manager *booth.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := session(manager, r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if s.State().Camera != config.CameraModeRemote {
			writeError(w, logger, booth.ErrNotRemote)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		connection.SetReadLimit(maxFrameBytes)
		connection.SetReadDeadline(time.Now().Add(websocket.PongWait))
		connection.SetPongHandler(func(string) error {
			connection.SetReadDeadline(time.Now().Add(websocket.PongWait))
			return nil
		})

		stop := make(chan struct{})
		defer close(stop)
		go keepAlive(connection, stop)

		logger.Info("Camera connected to session %s", s.ID())

		for {
			kind, msg, err := connection.ReadMessage()
			if err != nil {
				if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
					logger.Info("Camera disconnected from session %s", s.ID())
				} else {
					logger.Warning("Error reading camera message: %v", err)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(websocket.PongWait))

			switch kind {
			case gorilla.BinaryMessage:
				if err := s.PushFrame(msg); err != nil {
					logger.Warning("Dropping camera frame for %s: %v", s.ID(), err)
				}
			case gorilla.TextMessage:
				var ctl dto.CameraMessage
				if err := json.Unmarshal(msg, &ctl); err != nil {
					logger.Warning("Invalid camera message: %v", err)
					continue
				}
				if ctl.Type == "denied" {
					s.DenyCamera(ctl.Reason)
				}
			}
		}
	}
}

// keepAlive pings a connection the hub does not own until stop is closed.
func keepAlive(connection *gorilla.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(websocket.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := connection.WriteControl(gorilla.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
