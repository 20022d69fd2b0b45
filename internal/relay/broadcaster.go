package relay

import (
	"context"

	"chat-relay/pkg/metrics"
)

// Transport is the push side of the connection layer: group membership plus
// best-effort delivery primitives. Sends are fire-and-forget; a slow or dead
// recipient never blocks or fails the caller.
type Transport interface {
	JoinGroup(connID, group string)
	SendToGroup(ctx context.Context, group, event string, args ...any)
	SendToAll(ctx context.Context, event string, args ...any)
	SendToConnection(ctx context.Context, connID, event string, args ...any)
}

// Broadcaster fans a named event out to a room or to every connection.
// Recipient resolution lives in the transport's group index; the broadcaster
// only decides scope and keeps the delivery counters.
type Broadcaster struct {
	t Transport
}

// NewBroadcaster wraps a transport
func NewBroadcaster(t Transport) *Broadcaster {
	return &Broadcaster{t: t}
}

// ToRoom delivers an event to every current member of the room
func (b *Broadcaster) ToRoom(ctx context.Context, room, event string, args ...any) {
	metrics.Broadcasts.WithLabelValues(event).Inc()
	b.t.SendToGroup(ctx, room, event, args...)
}

// ToAll delivers an event to every connected client regardless of room
func (b *Broadcaster) ToAll(ctx context.Context, event string, args ...any) {
	metrics.Broadcasts.WithLabelValues(event).Inc()
	b.t.SendToAll(ctx, event, args...)
}
