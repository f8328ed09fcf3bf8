// Package broadcast fans the engine's 1 Hz Snapshot out to WebSocket
// clients as JSON, grounded on the teacher's Hub/Client registration
// pattern (internal/broadcast/server.go in the original
// yoghaf-market-indikator tree) but carrying the wire payload as plain
// JSON instead of MsgPack, per the outbound contract's field-name-exact
// shape, and replaying recent history from state.RingBuffer on connect.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hlflow/internal/model"
	"hlflow/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LatestFunc returns the most recently assembled snapshot.
type LatestFunc func() (model.Snapshot, bool)

// Broadcaster polls LatestFunc at interval and fans each new Snapshot out
// to every connected client as one JSON text message.
type Broadcaster struct {
	latest   LatestFunc
	buffer   *state.RingBuffer
	interval time.Duration
	log      *slog.Logger

	hub *hub
}

func NewBroadcaster(latest LatestFunc, buffer *state.RingBuffer, interval time.Duration, log *slog.Logger) *Broadcaster {
	return &Broadcaster{latest: latest, buffer: buffer, interval: interval, log: log, hub: newHub(log)}
}

// Run drives the hub and serves /ws on addr until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context, addr string) error {
	go b.hub.run(ctx)
	go b.pollLoop(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(b.hub, b.buffer, w, r, b.log)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	b.log.Info("broadcaster listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (b *Broadcaster) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var lastTimeMs int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, ok := b.latest()
			if !ok || snap.TimeMs == lastTimeMs {
				continue
			}
			lastTimeMs = snap.TimeMs

			if b.buffer != nil {
				b.buffer.Add(snap)
			}

			msg, err := json.Marshal(snap)
			if err != nil {
				b.log.Error("snapshot marshal failed", "error", err)
				continue
			}
			b.hub.broadcast(msg)
		}
	}
}

// hub maintains active clients and fans out JSON snapshot messages.
type hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	messages   chan []byte
	log        *slog.Logger
}

func newHub(log *slog.Logger) *hub {
	return &hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		messages:   make(chan []byte, 16),
		log:        log,
	}
}

func (h *hub) broadcast(msg []byte) {
	h.messages <- msg
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("client connected", "total", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info("client disconnected", "total", len(h.clients))
			}
		case msg := <-h.messages:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow client, drop this tick rather than block the hub
				}
			}
		}
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func serveWs(h *hub, buffer *state.RingBuffer, w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 256)}

	if buffer != nil {
		for _, snap := range buffer.GetAll() {
			msg, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		}
	}

	h.register <- c
	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
