package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chat-relay/pkg/metrics"
)

// Notifications handles the notification endpoint. It is a second facade
// over the same registry as Chat with its own event names; membership is
// keyed by connection, not by handler, so records written by one are read by
// the other.
type Notifications struct {
	reg *Registry
	t   Transport
	bc  *Broadcaster
	log *slog.Logger
}

// NewNotifications builds a notification handler over the shared registry
func NewNotifications(reg *Registry, t Transport, bc *Broadcaster, log *slog.Logger) *Notifications {
	return &Notifications{reg: reg, t: t, bc: bc, log: log}
}

// JoinGroup subscribes the connection to a room's notifications, records its
// identity, and announces the subscription to the room.
func (n *Notifications) JoinGroup(ctx context.Context, connID string, u UserConnection) {
	n.t.JoinGroup(connID, u.Room)
	n.reg.Upsert(connID, u)
	n.log.Debug("notify.join_group", "conn", connID, "user", u.UserName, "room", u.Room)
	n.bc.ToRoom(ctx, u.Room, EventReceiveNotification, announcer,
		fmt.Sprintf("%s joined notifications in %s.", u.UserName, u.Room))
}

// SendNotification pushes a notification to the sender's current room.
// Unjoined senders are dropped silently, same policy as chat messages.
func (n *Notifications) SendNotification(ctx context.Context, connID, msg string) {
	u, ok := n.reg.Lookup(connID)
	if !ok {
		metrics.DroppedUnjoined.Inc()
		n.log.Debug("notify.drop_unjoined", "conn", connID)
		return
	}
	n.bc.ToRoom(ctx, u.Room, EventReceiveNotification, u.UserName, msg)
}

// Dispatch routes an inbound frame to the matching operation
func (n *Notifications) Dispatch(ctx context.Context, connID, event string, args []json.RawMessage) {
	switch event {
	case "JoinGroup":
		u, err := decodeUser(args)
		if err != nil {
			n.log.Warn("notify.bad_args", "event", event, "err", err)
			return
		}
		n.JoinGroup(ctx, connID, u)
	case "SendNotification":
		msg, err := decodeText(args)
		if err != nil {
			n.log.Warn("notify.bad_args", "event", event, "err", err)
			return
		}
		n.SendNotification(ctx, connID, msg)
	default:
		n.log.Warn("notify.unknown_event", "event", event, "conn", connID)
	}
}

// Disconnected purges the closed connection's membership
func (n *Notifications) Disconnected(connID string) {
	n.reg.Remove(connID)
	n.log.Debug("notify.disconnected", "conn", connID)
}
