package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chat-relay/pkg/metrics"
)

// Event names pushed to clients. These are the wire-visible contract, so
// renaming one is a protocol change.
const (
	EventReceiveMessage         = "ReceiveMessage"
	EventJoinSpecificChatRoom   = "JoinSpecificChatRoom"
	EventReceiveSpecificMessage = "ReceiveSpecificMessage"
	EventReceiveNotification    = "ReceiveNotification"
)

// announcer is the sender name stamped on system announcements
const announcer = "admin"

var errBadArgs = errors.New("relay: malformed event arguments")

// Chat handles the chat endpoint: global hellos, room joins, and room-scoped
// messages. It shares its registry with the notification handler, so a
// connection joined here is immediately known there as well.
type Chat struct {
	reg *Registry
	t   Transport
	bc  *Broadcaster
	log *slog.Logger
}

// NewChat builds a chat handler over the shared registry and transport
func NewChat(reg *Registry, t Transport, bc *Broadcaster, log *slog.Logger) *Chat {
	return &Chat{reg: reg, t: t, bc: bc, log: log}
}

// JoinChat announces the user's arrival to every connected client. It is a
// courtesy hello only: no group registration and no registry write happen
// until the connection joins a specific room.
func (c *Chat) JoinChat(ctx context.Context, connID string, u UserConnection) {
	c.bc.ToAll(ctx, EventReceiveMessage, announcer, fmt.Sprintf("%s has joined the chat.", u.UserName))
}

// JoinRoom registers the connection into the room's delivery group, records
// its identity, and announces the join to the room (the joiner included).
// Joining while already in another room switches rooms; the old membership is
// simply overwritten and no leave announcement is sent.
func (c *Chat) JoinRoom(ctx context.Context, connID string, u UserConnection) {
	c.t.JoinGroup(connID, u.Room)
	c.reg.Upsert(connID, u)
	c.log.Debug("chat.join_room", "conn", connID, "user", u.UserName, "room", u.Room)
	c.bc.ToRoom(ctx, u.Room, EventJoinSpecificChatRoom, announcer,
		fmt.Sprintf("%s has joined the chat room %s.", u.UserName, u.Room))
}

// SendMessage relays a message to the sender's current room, tagged with the
// user name on record. A message from a connection that never joined is
// dropped without feedback to the sender; that silence is part of the
// protocol, not an oversight.
func (c *Chat) SendMessage(ctx context.Context, connID, msg string) {
	u, ok := c.reg.Lookup(connID)
	if !ok {
		metrics.DroppedUnjoined.Inc()
		c.log.Debug("chat.drop_unjoined", "conn", connID)
		return
	}
	c.bc.ToRoom(ctx, u.Room, EventReceiveSpecificMessage, u.UserName, msg)
}

// Dispatch routes an inbound frame from the transport to the matching
// operation. Unknown events are logged and ignored.
func (c *Chat) Dispatch(ctx context.Context, connID, event string, args []json.RawMessage) {
	switch event {
	case "JoinChat":
		u, err := decodeUser(args)
		if err != nil {
			c.log.Warn("chat.bad_args", "event", event, "err", err)
			return
		}
		c.JoinChat(ctx, connID, u)
	case "JoinSpecificChatRoom":
		u, err := decodeUser(args)
		if err != nil {
			c.log.Warn("chat.bad_args", "event", event, "err", err)
			return
		}
		c.JoinRoom(ctx, connID, u)
	case "SendMessage":
		msg, err := decodeText(args)
		if err != nil {
			c.log.Warn("chat.bad_args", "event", event, "err", err)
			return
		}
		c.SendMessage(ctx, connID, msg)
	default:
		c.log.Warn("chat.unknown_event", "event", event, "conn", connID)
	}
}

// Disconnected purges the closed connection's membership so the registry
// cannot grow without bound and the ID can never resolve to a stale identity.
func (c *Chat) Disconnected(connID string) {
	c.reg.Remove(connID)
	c.log.Debug("chat.disconnected", "conn", connID)
}

// decodeUser expects args to be a single {userName, room} object
func decodeUser(args []json.RawMessage) (UserConnection, error) {
	if len(args) != 1 {
		return UserConnection{}, errBadArgs
	}
	var u UserConnection
	if err := json.Unmarshal(args[0], &u); err != nil {
		return UserConnection{}, err
	}
	return u, nil
}

// decodeText expects args to be a single string
func decodeText(args []json.RawMessage) (string, error) {
	if len(args) != 1 {
		return "", errBadArgs
	}
	var s string
	if err := json.Unmarshal(args[0], &s); err != nil {
		return "", err
	}
	return s, nil
}
