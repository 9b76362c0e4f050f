// Package stream pushes widget events to browsers over a WebSocket, for hosts
// that listen for lookup changes outside the HTMX request that caused them.
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pthm/hxlookup/lib/widget"
)

const defaultBuffer = 64

// Message types sent by the hub.
const (
	TypeHello = "hello"
	TypeEvent = "event"
	TypePong  = "pong"
	TypeError = "error"
)

// ServerMessage is one frame sent to a client.
type ServerMessage struct {
	Type     string         `json:"type"`
	Instance string         `json:"instance,omitempty"`
	Event    string         `json:"event,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	// RequestID echoes the client message ID on pong and error frames.
	RequestID string `json:"requestId,omitempty"`
}

// ClientMessage is one frame received from a client.
type ClientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithBuffer sets the per-client queue length. Events for a client whose
// queue is full are dropped.
func WithBuffer(n int) Option {
	return func(h *Hub) { h.buffer = n }
}

// WithOriginPatterns sets the accepted Origin patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

type subscriber struct {
	ch       chan ServerMessage
	instance string
}

// Hub fans widget events out to connected clients. It implements
// widget.Notifier.
type Hub struct {
	log     *slog.Logger
	buffer  int
	origins []string

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

var _ widget.Notifier = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		log:    slog.Default(),
		buffer: defaultBuffer,
		subs:   make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Emit queues ev for every client interested in instanceID. It never blocks.
func (h *Hub) Emit(instanceID string, ev widget.Event) {
	msg := ServerMessage{Type: TypeEvent, Instance: instanceID, Event: ev.Name, Data: ev.Data}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.instance != "" && s.instance != instanceID {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			h.log.Warn("dropping event for slow client", "instance", instanceID, "event", ev.Name)
		}
	}
}

// Subscribe registers a listener. An empty instance receives every event.
func (h *Hub) Subscribe(instance string) (<-chan ServerMessage, func()) {
	s := &subscriber{ch: make(chan ServerMessage, h.buffer), instance: instance}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
		})
	}
}

// Clients returns the number of registered listeners.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades to WebSocket and streams events until the client goes
// away. The optional "instance" query parameter narrows the stream to one
// widget.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	instance := r.URL.Query().Get("instance")
	events, unsubscribe := h.Subscribe(instance)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan ServerMessage, 4)
	go h.readLoop(ctx, cancel, conn, replies)

	if !h.send(ctx, conn, ServerMessage{Type: TypeHello, Instance: instance}) {
		return
	}
	for {
		var msg ServerMessage
		select {
		case msg = <-events:
		case msg = <-replies:
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if !h.send(ctx, conn, msg) {
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, replies chan<- ServerMessage) {
	defer cancel()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.log.Debug("websocket read ended", "error", err)
			}
			return
		}
		reply := ServerMessage{Type: TypePong, RequestID: msg.ID}
		if msg.Type != "ping" {
			reply = ServerMessage{Type: TypeError, RequestID: msg.ID, Data: map[string]any{
				"message": "unknown message type: " + msg.Type,
			}}
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) bool {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}
