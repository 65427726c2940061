// Package ratelimit provides fixed-window request limiting keyed by caller.
//
// Two backends share the Limiter interface: Memory for a single process and
// Redis when several API replicas must share one budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether another request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count, limit int64, ttl time.Duration) Decision {
	d := Decision{Allowed: count <= limit, Limit: limit, Remaining: limit - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

// Redis counts requests with INCR on "<prefix>:<key>" and starts the window
// with EXPIRE on the first hit.
type Redis struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
}

var _ Limiter = (*Redis)(nil)

// NewRedis creates a Redis-backed limiter allowing limit requests per window.
func NewRedis(client redis.Cmdable, prefix string, limit int, window time.Duration) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr %s: %w", k, err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: expire %s: %w", k, err)
		}
		return decide(count, r.limit, r.window), nil
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: ttl %s: %w", k, err)
	}
	// a key left without expiry would block the caller forever
	if ttl < 0 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: expire %s: %w", k, err)
		}
		ttl = r.window
	}
	return decide(count, r.limit, ttl), nil
}

// maxIdleKeys is how many windows Memory tracks before sweeping expired ones.
const maxIdleKeys = 10000

type window struct {
	count   int64
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu      sync.Mutex
	limit   int64
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

var _ Limiter = (*Memory)(nil)

// NewMemory creates an in-process limiter allowing limit requests per window.
func NewMemory(limit int, win time.Duration) *Memory {
	return &Memory{
		limit:   int64(limit),
		window:  win,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(ctx context.Context, key string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		if len(m.windows) >= maxIdleKeys {
			m.sweep(now)
		}
		w = &window{resetAt: now.Add(m.window)}
		m.windows[key] = w
	}
	w.count++

	return decide(w.count, m.limit, w.resetAt.Sub(now)), nil
}

func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
