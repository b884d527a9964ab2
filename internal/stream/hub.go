// Package stream publishes game state to websocket clients and feeds their
// actions back into the simulation.
//
// A Hub owns the set of connected clients. Attach subscribes it to a Game
// so that every transition is broadcast as a state message; actions sent
// by clients are decoded and handed to a Submitter, normally the Runner
// hosting that Game.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/matter/internal/reducer"
)

// Message types sent to clients.
const (
	TypeState     = "state"
	TypeNarrative = "narrative"
	TypeError     = "error"
)

// Message is the JSON envelope for everything sent to clients.
type Message struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Submitter accepts decoded client actions. engine.Runner implements it.
type Submitter interface {
	Enqueue(a reducer.Action) bool
}

const (
	sendBuffer      = 256
	broadcastBuffer = 64
	writeWait       = 10 * time.Second
	maxMessageSize  = 64 << 10
)

type outbound struct {
	data  []byte
	state bool
	// to is set for a reply addressed to a single client
	to *Client
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	reply      chan outbound
	done       chan struct{}

	// latest state message, replayed to clients as they connect
	snapshot []byte

	submit   Submitter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// WithCheckOrigin overrides the handshake origin check. The default
// accepts any origin.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub creates a hub that forwards client actions to submit.
// Run must be started before clients connect.
func NewHub(submit Submitter, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		reply:      make(chan outbound),
		done:       make(chan struct{}),
		submit:     submit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
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
			h.clients[c] = true
			h.logger.Debug("stream client connected", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))
			if h.snapshot != nil {
				h.deliver(c, h.snapshot)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("stream client disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			if msg.state {
				h.snapshot = msg.data
			}
			for c := range h.clients {
				h.deliver(c, msg.data)
			}

		case msg := <-h.reply:
			if h.clients[msg.to] {
				h.deliver(msg.to, msg.data)
			}
		}
	}
}

// deliver queues data for c, dropping the client if its buffer is full.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("stream client too slow, dropping", "remote", c.conn.RemoteAddr().String())
		close(c.send)
		delete(h.clients, c)
	}
}

// Broadcast sends msg to every connected client. It never blocks: if the
// hub is backed up the message is dropped and an error returned.
func (h *Hub) Broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	select {
	case h.broadcast <- outbound{data: data, state: msg.Type == TypeState}:
		return nil
	default:
		return fmt.Errorf("broadcast queue full, dropped %s message", msg.Type)
	}
}

// send hands msg to the Run loop unless it has exited.
func (h *Hub) send(ch chan outbound, msg outbound) bool {
	select {
	case ch <- msg:
		return true
	case <-h.done:
		return false
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
