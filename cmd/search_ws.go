package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"roomfinder/internal/handlers"
	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
	"roomfinder/internal/services"
)

const (
	searchWSMessageTypeSearch  = "search"
	searchWSMessageTypeResults = "results"
	searchWSMessageTypeError   = "error"
	maxSearchQuery             = 200
)

type searchWSMessage struct {
	Type      string `json:"type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Query     string `json:"query"`
}

type searchWSResponse struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Query     string           `json:"query,omitempty"`
	Error     string           `json:"error,omitempty"`
	Results   []models.Listing `json:"results"`
}

// wsWriter serialises data frames written from the debounce goroutine and
// the read loop.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return w.conn.WriteJSON(v)
}

// SearchWebSocketHandler answers search-as-you-type. Only the last query
// typed within the debounce delay is sent to the marketplace, and a newer
// query cancels one still in flight.
func (app *application) SearchWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := handlers.SessionFrom(r.Context())
	if !ok {
		app.clientError(w, http.StatusUnauthorized, "")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logger.Warn("search ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(conn, stop)

	out := &wsWriter{conn: conn}
	debouncer := services.NewDebouncer(app.searchDebounce)
	defer debouncer.Stop()

	for {
		var msg searchWSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		if msg.Type != "" && msg.Type != searchWSMessageTypeSearch {
			_ = out.send(searchWSResponse{Type: searchWSMessageTypeError, RequestID: msg.RequestID, Error: "unsupported message type"})
			continue
		}
		query := truncateQuery(strings.TrimSpace(msg.Query), maxSearchQuery)
		requestID := msg.RequestID

		debouncer.Trigger(r.Context(), func(ctx context.Context) {
			results, err := app.rooms.Search(ctx, sess, query)
			if ctx.Err() != nil {
				return
			}
			resp := searchWSResponse{Type: searchWSMessageTypeResults, RequestID: requestID, Query: query, Results: results}
			if err != nil {
				resp = searchWSResponse{
					Type:      searchWSMessageTypeError,
					RequestID: requestID,
					Query:     query,
					Error:     roomapi.UserMessage(err, "search failed, try again"),
				}
			}
			if results == nil && err == nil {
				resp.Results = []models.Listing{}
			}
			if err := out.send(resp); err != nil {
				app.logger.Debug("search ws write failed", "err", err)
			}
		})
	}
}

// truncateQuery cuts q to at most max runes.
func truncateQuery(q string, max int) string {
	if utf8.RuneCountInString(q) <= max {
		return q
	}
	return string([]rune(q)[:max])
}

func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
