package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config adds grievance-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	DBMaxConns            int
	SlowQueryMillis       int
	RedisURL              string
	RealtimePrefix        string
	SlackWebhookURL       string
	PublicBaseURL         string
	AuthorityToken        string
	StoreTimeoutSeconds   int
	PublishTimeoutSeconds int
	RateLimitPerMinute    int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.DBMaxConns, "db-max-conns", 0, "maximum pooled PostgreSQL connections (0 = pgx default)")
	fs.IntVar(&c.SlowQueryMillis, "slow-query-ms", 500, "log queries slower than this many milliseconds (0 = off)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for realtime events and shared rate limits (empty = disabled / in-process)")
	fs.StringVar(&c.RealtimePrefix, "realtime-channel-prefix", "grievance", "prefix for per-user realtime channels and rate limit keys")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL mirroring owner notifications")
	fs.StringVar(&c.PublicBaseURL, "public-base-url", "", "base URL prepended to complaint links in Slack messages")
	fs.StringVar(&c.AuthorityToken, "authority-token", "", "bearer token granting authority privileges (status changes)")
	fs.IntVar(&c.StoreTimeoutSeconds, "store-timeout-seconds", 5, "deadline for each unit of work against the store (1..60)")
	fs.IntVar(&c.PublishTimeoutSeconds, "publish-timeout-seconds", 3, "deadline for each best-effort realtime publish (1..60)")
	fs.IntVar(&c.RateLimitPerMinute, "rate-limit-per-minute", 120, "API requests allowed per caller per minute (0 = unlimited)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DBMaxConns < 0 {
		errs = append(errs, fmt.Errorf("invalid DB_MAX_CONNS %d (must be >= 0)", c.DBMaxConns))
	}
	if c.SlowQueryMillis < 0 {
		errs = append(errs, fmt.Errorf("invalid SLOW_QUERY_MS %d (must be >= 0)", c.SlowQueryMillis))
	}

	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		errs = append(errs, errors.New("REDIS_URL must use the redis:// or rediss:// scheme"))
	}
	if c.RealtimePrefix == "" {
		errs = append(errs, errors.New("REALTIME_CHANNEL_PREFIX is required"))
	}

	if c.PublicBaseURL != "" {
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid PUBLIC_BASE_URL %q (must be absolute)", c.PublicBaseURL))
		}
	}

	// Authority token guards every status change
	if c.AuthorityToken == "" {
		errs = append(errs, errors.New("AUTHORITY_TOKEN is required"))
	} else if len(c.AuthorityToken) < 16 {
		errs = append(errs, errors.New("AUTHORITY_TOKEN must be at least 16 characters"))
	}

	if c.StoreTimeoutSeconds <= 0 || c.StoreTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid STORE_TIMEOUT_SECONDS %d (must be 1..60)", c.StoreTimeoutSeconds))
	}
	if c.PublishTimeoutSeconds <= 0 || c.PublishTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid PUBLISH_TIMEOUT_SECONDS %d (must be 1..60)", c.PublishTimeoutSeconds))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %d (must be >= 0)", c.RateLimitPerMinute))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StoreTimeout is the per-unit-of-work store deadline.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// PublishTimeout is the deadline for a single realtime publish.
func (c *Config) PublishTimeout() time.Duration {
	return time.Duration(c.PublishTimeoutSeconds) * time.Second
}

// SlowQueryThreshold is the duration above which queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}
