package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/docflow/internal/model"
)

// DefaultChannel is the Redis pub/sub channel activities travel on.
const DefaultChannel = "docflow:activities"

// RedisBus relays activities between server instances. Publish sends to
// Redis; Run delivers everything received from Redis to the local hub,
// including this instance's own publications.
type RedisBus struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *slog.Logger
}

// NewRedisBus returns a bus bridging hub through channel.
func NewRedisBus(client *redis.Client, channel string, hub *Hub, log *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{client: client, channel: channel, hub: hub, log: log}
}

// Publish sends a to every instance subscribed to the channel.
func (b *RedisBus) Publish(ctx context.Context, a model.Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding activity: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing activity %s: %w", a.ID, err)
	}
	return nil
}

// Run subscribes to the channel and delivers messages to the hub until
// ctx is cancelled. ready, if non-nil, is closed once the subscription is
// confirmed.
func (b *RedisBus) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var a model.Activity
			if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
				b.log.Warn("broadcast: malformed bus message", "error", err)
				continue
			}
			if a.TenantID == "" {
				b.log.Warn("broadcast: bus message without tenant dropped", "activity_id", a.ID)
				continue
			}
			b.hub.Deliver(a)
		}
	}
}
