package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"academiaml/service"
)

// wsEvent is the wire form of a grading event on the websocket feed.
type wsEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	ModelID   string      `json:"model_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts grading events to connected websocket clients. It
// implements service.EventSink; slow clients are dropped rather than
// blocking the service.
type EventHub struct {
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	broadcast chan []byte

	mu      sync.Mutex
	clients map[*hubClient]bool
}

func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		broadcast: make(chan []byte, 256),
		clients:   make(map[*hubClient]bool),
	}
}

// Publish implements service.EventSink.
func (h *EventHub) Publish(event service.Event) {
	payload, err := json.Marshal(wsEvent{
		ID:        uuid.NewString(),
		Type:      event.Type,
		ModelID:   event.ModelID,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	if err != nil {
		h.logger.Warn("failed to marshal event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Feed full; drop rather than stall grading.
	}
}

// Run fans broadcast messages out to clients until ctx is canceled.
func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// HandleWS upgrades the connection and streams events until the client
// disconnects.
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &hubClient{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("event client connected", zap.Int("total", total))

	go h.writePump(client)
	go h.readPump(client)
}

func (h *EventHub) writePump(client *hubClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; its job is detecting disconnects.
func (h *EventHub) readPump(client *hubClient) {
	defer h.drop(client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) drop(client *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}
