package server

import (
	"net/http"
	"sync"

	"musecrate/logger"

	"github.com/gorilla/websocket"
)

// Event types pushed over the library event feed.
const (
	EventAlbumCreated   = "album_created"
	EventAlbumDeleted   = "album_deleted"
	EventAlbumFavorited = "album_favorited"
	EventSongCreated    = "song_created"
	EventSongDeleted    = "song_deleted"
	EventSongFavorited  = "song_favorited"
)

// Event is a library change notification.
type Event struct {
	Type     string `json:"type"`
	AlbumID  int64  `json:"albumId,omitempty"`
	SongID   int64  `json:"songId,omitempty"`
	Title    string `json:"title,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
}

const eventSendBuffer = 16

// eventClient is one registered socket. Events are queued on send and
// written by writePump, the only goroutine that ever writes to conn.
type eventClient struct {
	conn *websocket.Conn
	send chan Event
}

// writePump drains the send channel onto the connection until the channel
// is closed or a write fails.
func (c *eventClient) writePump() {
	defer c.conn.Close()
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// EventHub fans library events out to the sockets of the affected user.
// Delivery is fire and forget; a client whose send buffer is full is
// disconnected.
type EventHub struct {
	mu      sync.Mutex
	clients map[int64]map[*eventClient]bool
}

// NewEventHub creates an empty EventHub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[int64]map[*eventClient]bool),
	}
}

func (hub *EventHub) add(userID int64, c *eventClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.clients[userID] == nil {
		hub.clients[userID] = make(map[*eventClient]bool)
	}
	hub.clients[userID][c] = true
}

func (hub *EventHub) remove(userID int64, c *eventClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.dropLocked(userID, c)
}

// dropLocked unregisters a client and closes its send channel, which stops
// its writePump. Callers must hold hub.mu; dropping an unknown client is a
// no-op, so the channel is closed at most once.
func (hub *EventHub) dropLocked(userID int64, c *eventClient) {
	conns, ok := hub.clients[userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(hub.clients, userID)
	}
}

// Publish queues the event for every open socket of the user.
func (hub *EventHub) Publish(userID int64, event Event) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for c := range hub.clients[userID] {
		select {
		case c.send <- event:
		default:
			logger.Debug("Dropping slow event feed client",
				logger.Int64("userId", userID))
			hub.dropLocked(userID, c)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventsHandler upgrades the connection and keeps it registered until the
// client goes away. The server only pushes; inbound messages are discarded.
func (h *APIHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := h.currentClaims(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Failed to upgrade event feed connection", logger.ErrorField(err))
		return
	}

	client := &eventClient{conn: conn, send: make(chan Event, eventSendBuffer)}
	h.events.add(claims.UserID, client)
	go client.writePump()
	logger.Debug("Event feed client connected", logger.Int64("userId", claims.UserID))

	defer func() {
		h.events.remove(claims.UserID, client)
		conn.Close()
		logger.Debug("Event feed client disconnected", logger.Int64("userId", claims.UserID))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
