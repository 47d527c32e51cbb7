package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"roomfinder/internal/handlers"
	"roomfinder/internal/models"
)

const (
	readLimit     = 64 << 10
	readDeadline  = 120 * time.Second
	writeDeadline = 5 * time.Second
	pingInterval  = 15 * time.Second
	clientBuffer  = 32
	hubBuffer     = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
}

type wsClient struct {
	userID int
	admin  bool
	conn   *websocket.Conn
	send   chan models.Event
}

// EventHub fans domain events out to connected dashboards and apps. An
// event reaches its target user and every connected admin.
type EventHub struct {
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	events     chan models.Event
	done       chan struct{}
	logger     *slog.Logger
}

func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		events:     make(chan models.Event, hubBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "hub"),
	}
}

// Publish queues ev without blocking; events are dropped when the hub is
// saturated.
func (h *EventHub) Publish(ev models.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("event dropped, hub queue full", "type", ev.Type, "user_id", ev.UserID)
	}
}

// All operations on clients happen here.
func (h *EventHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("ws register", "user_id", c.userID, "admin", c.admin)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
				h.logger.Debug("ws unregister", "user_id", c.userID)
			}

		case ev := <-h.events:
			for c := range h.clients {
				if !c.admin && (ev.UserID == 0 || c.userID != ev.UserID) {
					continue
				}
				select {
				case c.send <- ev:
				default:
					h.logger.Warn("slow ws client dropped", "user_id", c.userID)
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *EventHub) add(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *EventHub) remove(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// EventsWebSocketHandler streams events for the signed-in user.
func (app *application) EventsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := handlers.SessionFrom(r.Context())
	if !ok {
		app.clientError(w, http.StatusUnauthorized, "")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		userID: sess.UserID(),
		admin:  sess.Role() == models.RoleAdmin,
		conn:   conn,
		send:   make(chan models.Event, clientBuffer),
	}
	if !app.hub.add(c) {
		_ = writeClose(conn, websocket.CloseGoingAway, "server closing")
		_ = conn.Close()
		return
	}

	go writeEvents(c)
	readUntilClosed(conn)
	app.hub.remove(c)
}

// writeEvents owns all data writes to the connection.
func writeEvents(c *wsClient) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = writeClose(c.conn, websocket.CloseGoingAway, "server closing")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-t.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed; it returns once the connection fails.
func readUntilClosed(conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) error {
	return conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeDeadline),
	)
}
