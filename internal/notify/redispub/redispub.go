// Package redispub publishes realtime complaint events over Redis pub/sub.
//
// Each user has a channel "<prefix>:user:<userID>". Whatever holds the
// client's socket subscribes to it and forwards the JSON message.
package redispub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

// DefaultPrefix is used when New is given an empty prefix.
const DefaultPrefix = "grievance"

// Publisher implements complaint.Publisher on a Redis client.
type Publisher struct {
	client redis.Cmdable
	prefix string
}

var _ complaint.Publisher = (*Publisher)(nil)

// Connect parses redisURL, opens a client and verifies it with PING.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// New creates a publisher on client.
func New(client redis.Cmdable, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{client: client, prefix: prefix}
}

// Channel returns the channel name events for userID are published on.
func (p *Publisher) Channel(userID string) string {
	return p.prefix + ":user:" + userID
}

// Publish sends ev to the recipient's channel. Having no subscribers is not an error.
func (p *Publisher) Publish(ctx context.Context, ev complaint.Event) error {
	if ev.UserID == "" {
		return fmt.Errorf("redispub: event %q has no recipient", ev.Type)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redispub: marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(ev.UserID), body).Err(); err != nil {
		return fmt.Errorf("redispub: publish: %w", err)
	}
	return nil
}
