package ws

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chat-relay/internal/app"
)

// BusMessage is one broadcast crossing instances. Group "" means every
// connection; Origin lets an instance skip the echo of its own publishes.
type BusMessage struct {
	Origin  string `json:"origin"`
	Group   string `json:"group,omitempty"`
	Payload []byte `json:"payload"`
}

// Bus is the redis pub/sub backplane for multi-instance deployments
type Bus struct {
	rdb *redis.Client
	id  string
	log *slog.Logger
}

// NewBus connects to redis and verifies connectivity
func NewBus(ctx context.Context, cfg app.Config, log *slog.Logger) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bus{rdb: rdb, id: uuid.NewString(), log: log}, nil
}

// Publish sends an already-encoded frame to the channel for a group
func (b *Bus) Publish(ctx context.Context, group string, payload []byte) error {
	raw, _ := json.Marshal(BusMessage{Origin: b.id, Group: group, Payload: payload})
	return b.rdb.Publish(ctx, channel(group), raw).Err()
}

// Subscribe listens to all relay channels and invokes fn for each message
// published by another instance
func (b *Bus) Subscribe(ctx context.Context, fn func(BusMessage)) {
	pubsub := b.rdb.PSubscribe(ctx, "relay:*")
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var bm BusMessage
			_ = json.Unmarshal([]byte(msg.Payload), &bm)
			if bm.Origin == "" || bm.Origin == b.id {
				continue
			}
			fn(bm)
		}
	}
}

// Close shuts down the redis connection
func (b *Bus) Close() { _ = b.rdb.Close() }

// channel namespacing for group pub/sub
func channel(group string) string {
	if group == "" {
		return "relay:all"
	}
	return "relay:group:" + group
}
