package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"chat-relay/internal/app"
	"chat-relay/pkg/metrics"
)

// Dispatcher receives decoded inbound frames and the disconnect signal for
// one endpoint. Implemented by the chat and notification handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID, event string, args []json.RawMessage)
	Disconnected(connID string)
}

// Hub owns every live connection and the group index used for room-scoped
// delivery. A connection belongs to at most one group at a time; joining
// another group moves it.
type Hub struct {
	log *slog.Logger
	bus *Bus // nil when running single-node
	cfg app.Config

	mu     sync.RWMutex
	conns  map[string]*Conn            // connID -> connection
	groups map[string]map[string]*Conn // group -> connID -> connection
	member map[string]string           // connID -> current group
}

// NewHub sets up the hub; bus may be nil to disable cross-instance fanout
func NewHub(logger *slog.Logger, bus *Bus, cfg app.Config) *Hub {
	return &Hub{
		log:    logger,
		bus:    bus,
		cfg:    cfg,
		conns:  map[string]*Conn{},
		groups: map[string]map[string]*Conn{},
		member: map[string]string{},
	}
}

// Run forwards bus messages from other instances to local members.
// Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.bus != nil {
		go h.bus.Subscribe(ctx, func(m BusMessage) {
			if m.Group == "" {
				h.deliverAll(m.Payload)
			} else {
				h.deliverGroup(m.Group, m.Payload)
			}
		})
	}
	<-ctx.Done()
}

// JoinGroup moves a connection into a group, leaving its previous one.
// Unknown connection IDs are ignored.
func (h *Hub) JoinGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.conns[connID]
	if c == nil {
		return
	}
	h.leaveLocked(connID)
	g := h.groups[group]
	if g == nil {
		g = map[string]*Conn{}
		h.groups[group] = g
	}
	g[connID] = c
	h.member[connID] = group
}

// leaveLocked detaches a connection from its current group, pruning the
// group when it empties. Caller holds h.mu.
func (h *Hub) leaveLocked(connID string) {
	group, ok := h.member[connID]
	if !ok {
		return
	}
	delete(h.member, connID)
	if g := h.groups[group]; g != nil {
		delete(g, connID)
		if len(g) == 0 {
			delete(h.groups, group)
		}
	}
}

// SendToGroup pushes an event to every member of a group, on this instance
// and (through the bus) on the others
func (h *Hub) SendToGroup(ctx context.Context, group, event string, args ...any) {
	b, err := encodeFrame(event, args...)
	if err != nil {
		h.log.Error("ws.encode", "event", event, "err", err)
		return
	}
	if h.bus != nil {
		_ = h.bus.Publish(ctx, group, b)
	}
	h.deliverGroup(group, b)
}

// SendToAll pushes an event to every connection regardless of group
func (h *Hub) SendToAll(ctx context.Context, event string, args ...any) {
	b, err := encodeFrame(event, args...)
	if err != nil {
		h.log.Error("ws.encode", "event", event, "err", err)
		return
	}
	if h.bus != nil {
		_ = h.bus.Publish(ctx, "", b)
	}
	h.deliverAll(b)
}

// SendToConnection pushes an event to a single connection on this instance
func (h *Hub) SendToConnection(ctx context.Context, connID, event string, args ...any) {
	b, err := encodeFrame(event, args...)
	if err != nil {
		h.log.Error("ws.encode", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c != nil && c.send(b) {
		metrics.Delivered.Inc()
	}
}

// deliverGroup queues a frame to local group members; full buffers are
// skipped, never retried
func (h *Hub) deliverGroup(group string, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.groups[group] {
		if c.send(b) {
			metrics.Delivered.Inc()
		}
	}
}

// deliverAll queues a frame to every local connection
func (h *Hub) deliverAll(b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		if c.send(b) {
			metrics.Delivered.Inc()
		}
	}
}

// register adds an accepted connection under a fresh ID
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	n := len(h.conns)
	h.mu.Unlock()
	metrics.ActiveConnections.Inc()
	h.log.Info("ws.connect", "conn", c.id, "total", n)
}

// unregister removes a closed connection from the conns map and its group
func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	_, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		h.leaveLocked(connID)
	}
	n := len(h.conns)
	h.mu.Unlock()
	if ok {
		metrics.ActiveConnections.Dec()
		h.log.Info("ws.disconnect", "conn", connID, "total", n)
	}
}

// Handler returns the /ws endpoint for one dispatcher. Each accepted socket
// gets an opaque uuid connection ID, a write loop, and a read loop that
// feeds frames to the dispatcher until the peer goes away.
func (h *Hub) Handler(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sock, err := Accept(w, r)
		if err != nil {
			h.log.Error("ws.accept", "err", err)
			return
		}

		c := NewConn(uuid.NewString(), sock, h.cfg.SendBuffer)
		h.register(c)

		go c.WriteLoop(ctx, h.cfg.PingInterval)

		for {
			payload, ok := c.Read(ctx)
			if !ok {
				break
			}
			var f Frame
			if err := json.Unmarshal(payload, &f); err != nil {
				h.log.Warn("ws.bad_frame", "conn", c.id, "err", err)
				_ = c.closeBadFrame()
				break
			}
			d.Dispatch(ctx, c.id, f.Event, f.Args)
		}

		h.unregister(c.id)
		d.Disconnected(c.id)
		_ = c.Close()
	}
}
