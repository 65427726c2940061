// Package postgres builds instrumented pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

type options struct {
	observer QueryObserver
	slow     time.Duration
	maxConns int32
}

// Option configures NewPool.
type Option func(*options)

// WithQueryObserver reports every query's timing to o.
func WithQueryObserver(o QueryObserver) Option {
	return func(opts *options) { opts.observer = o }
}

// WithSlowQueryThreshold logs successful queries slower than d. Zero disables it.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(opts *options) { opts.slow = d }
}

// WithMaxConns caps the pool size. Zero keeps the pgx default.
func WithMaxConns(n int32) Option {
	return func(opts *options) { opts.maxConns = n }
}

// NewPool connects to databaseURL with otelpgx tracing wrapped in the
// logging tracer and verifies the connection.
func NewPool(ctx context.Context, databaseURL string, opts ...Option) (*pgxpool.Pool, error) {
	o := options{slow: 500 * time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.Tracer = newQueryTracer(otelpgx.NewTracer(), o)
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func newQueryTracer(inner *otelpgx.Tracer, o options) *queryTracer {
	t := &queryTracer{observer: o.observer, slow: o.slow}
	if inner != nil {
		t.inner = inner
	}
	return t
}
