// Package ws provides the WebSocket fan-out behind twinotterd's /ws
// endpoint. Clients may narrow the stream with ?types=a,b; the hub keeps
// connections alive with pings and drops those that stop answering.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eurec4a/twinotter/internal/telemetry"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
)

// Typed is satisfied by every telemetry event.
type Typed interface {
	Kind() telemetry.EventType
}

type client struct {
	conn  *websocket.Conn
	types map[telemetry.EventType]bool // nil accepts all
}

func (c *client) wants(t telemetry.EventType) bool {
	return c.types == nil || c.types[t]
}

type message struct {
	kind telemetry.EventType
	body []byte
}

// Hub owns the client set; all mutation happens on the Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]*client
	register   chan *client
	unregister chan *websocket.Conn
	broadcast  chan message
	count      chan chan int
	upgrader   websocket.Upgrader
}

// NewHub allocates a hub. Call Run in a goroutine to start the loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*client),
		register:   make(chan *client, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan message, 256),
		count:      make(chan chan int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run processes registrations, broadcasts and keepalive pings until ctx is
// cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				_ = conn.Close()
			}
			return

		case c := <-h.register:
			h.clients[c.conn] = c

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case msg := <-h.broadcast:
			for conn, c := range h.clients {
				if !c.wants(msg.kind) {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg.body); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}

		case <-ping.C:
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
		}
	}
}

// Clients returns the number of connected clients. It blocks until Run
// answers, so it must only be called while Run is active.
func (h *Hub) Clients(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}

// Handler upgrades requests to WebSocket connections and registers them.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types := ParseTypes(r.URL.Query().Get("types"))

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied to the client.
			return
		}
		h.register <- &client{conn: conn, types: types}

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(readTimeout))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// ParseTypes turns "a,b" into a filter set. An empty string means no filter.
func ParseTypes(s string) map[telemetry.EventType]bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	out := map[telemetry.EventType]bool{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[telemetry.EventType(t)] = true
		}
	}
	return out
}

// Publish marshals ev and queues it for delivery. When the queue is full
// the event is dropped rather than blocking the caller.
func (h *Hub) Publish(ev Typed) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind(), err)
	}
	select {
	case h.broadcast <- message{kind: ev.Kind(), body: b}:
	default:
	}
	return nil
}
