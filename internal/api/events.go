package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

const (
	eventBuffer  = 32
	writeTimeout = 10 * time.Second
)

// EventHub fans panel events out to websocket subscribers. Consumers receive
// read-only change notifications; there is no inbound message surface.
type EventHub struct {
	mu       sync.RWMutex
	subs     map[string]map[*eventClient]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

type eventClient struct {
	conn *websocket.Conn
	send chan domain.PanelEvent
}

// NewEventHub creates an event hub.
func NewEventHub(logger *logrus.Logger) *EventHub {
	return &EventHub{
		subs: make(map[string]map[*eventClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session access is enforced by the token check before upgrade
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// Broadcast delivers an event to every subscriber of its session. Slow
// subscribers are dropped rather than allowed to stall the panel.
func (h *EventHub) Broadcast(event domain.PanelEvent) {
	h.mu.RLock()
	clients := h.subs[event.SessionID]
	var stale []*eventClient
	for client := range clients {
		select {
		case client.send <- event:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.unsubscribe(event.SessionID, client)
	}
}

// ServeWS upgrades the request and streams the session's panel events until
// the client disconnects.
func (h *EventHub) ServeWS(c *gin.Context, sessionID string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &eventClient{
		conn: conn,
		send: make(chan domain.PanelEvent, eventBuffer),
	}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*eventClient]struct{})
	}
	h.subs[sessionID][client] = struct{}{}
	h.mu.Unlock()

	h.log.WithField("session_id", sessionID).Debug("Event subscriber connected")

	go h.writeLoop(sessionID, client)
	h.readLoop(sessionID, client)
}

// writeLoop pushes events to one subscriber.
func (h *EventHub) writeLoop(sessionID string, client *eventClient) {
	for event := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.conn.WriteJSON(event); err != nil {
			h.unsubscribe(sessionID, client)
			return
		}
	}
	client.conn.Close()
}

// readLoop drains control frames and detects disconnects. Any inbound data
// message is ignored.
func (h *EventHub) readLoop(sessionID string, client *eventClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.unsubscribe(sessionID, client)
			return
		}
	}
}

func (h *EventHub) unsubscribe(sessionID string, client *eventClient) {
	h.mu.Lock()
	clients, ok := h.subs[sessionID]
	if ok {
		if _, subscribed := clients[client]; !subscribed {
			h.mu.Unlock()
			return
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subs, sessionID)
		}
	}
	h.mu.Unlock()

	if ok {
		close(client.send)
	}
}
