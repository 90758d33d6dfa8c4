package websocket

import (
	"context"
	"encoding/json"
	"photobooth/internal/logger"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Viewers only listen, so the hub pings them to keep their read deadline
// moving. PingPeriod must stay below PongWait.
var (
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

type message struct {
	topic string
	kind  int
	data  []byte
}

type subscription struct {
	conn  *websocket.Conn
	topic string
}

// HubService fans messages out to websocket viewers grouped by topic. A topic
// is a booth session id.
type HubService struct {
	clients    map[*websocket.Conn]string
	broadcast  chan message
	register   chan subscription
	unregister chan *websocket.Conn
	closeTopic chan string
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan message, 64),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		closeTopic: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves hub operations until ctx is cancelled, then closes every client.
func (h *HubService) Run(ctx context.Context) error {
	defer h.shutdown()

	ping := time.NewTicker(PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ping.C:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					h.logger.Warning("Error pinging client: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.topic
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected to %s. Total: %d", sub.topic, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case topic := <-h.closeTopic:
			h.mutex.Lock()
			for client, t := range h.clients {
				if t == topic {
					client.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(writeWait))
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client, t := range h.clients {
				if t != msg.topic {
					continue
				}
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(msg.kind, msg.data); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *HubService) shutdown() {
	close(h.done)

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// Register subscribes client to topic.
func (h *HubService) Register(client *websocket.Conn, topic string) {
	select {
	case h.register <- subscription{conn: client, topic: topic}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes client.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// CloseTopic disconnects every client of topic.
func (h *HubService) CloseTopic(topic string) {
	select {
	case h.closeTopic <- topic:
	case <-h.done:
	}
}

// BroadcastJSON sends v as a text frame to the topic's clients.
func (h *HubService) BroadcastJSON(topic string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.send(message{topic: topic, kind: websocket.TextMessage, data: data})
	return nil
}

// BroadcastFrame sends a JPEG frame as a binary message. Frames are dropped
// when the hub is backed up; a newer one follows shortly.
func (h *HubService) BroadcastFrame(topic string, jpeg []byte) {
	select {
	case h.broadcast <- message{topic: topic, kind: websocket.BinaryMessage, data: jpeg}:
	case <-h.done:
	default:
	}
}

func (h *HubService) send(msg message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// GetClientCount returns the number of viewers of topic, or of all topics
// when topic is empty.
func (h *HubService) GetClientCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if topic == "" {
		return len(h.clients)
	}
	n := 0
	for _, t := range h.clients {
		if t == topic {
			n++
		}
	}
	return n
}
