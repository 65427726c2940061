package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
	"time"
)

const testToken = "0123456789abcdef"

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		SlowQueryMillis:       500,
		RealtimePrefix:        "grievance",
		AuthorityToken:        testToken,
		StoreTimeoutSeconds:   5,
		PublishTimeoutSeconds: 3,
		RateLimitPerMinute:    120,
	}
}

// with returns validBase modified by fn.
func with(fn func(c *Config)) Config {
	c := validBase()
	fn(&c)
	return c
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.RealtimePrefix != "grievance" {
		t.Errorf("RealtimePrefix = %q, want grievance", c.RealtimePrefix)
	}
	if c.StoreTimeout() != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want 5s", c.StoreTimeout())
	}
	if c.PublishTimeout() != 3*time.Second {
		t.Errorf("PublishTimeout = %v, want 3s", c.PublishTimeout())
	}
	if c.SlowQueryThreshold() != 500*time.Millisecond {
		t.Errorf("SlowQueryThreshold = %v, want 500ms", c.SlowQueryThreshold())
	}
	if c.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute = %d, want 120", c.RateLimitPerMinute)
	}
	if c.DatabaseURL != "" || c.RedisURL != "" {
		t.Errorf("DatabaseURL/RedisURL = %q/%q, want empty", c.DatabaseURL, c.RedisURL)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://localhost/grievance",
		"-redis-url", "redis://localhost:6379/0",
		"-authority-token", "override-token-0000",
		"-store-timeout-seconds", "10",
		"-rate-limit-per-minute", "0",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.DatabaseURL != "postgres://localhost/grievance" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", c.RedisURL)
	}
	if c.AuthorityToken != "override-token-0000" {
		t.Errorf("AuthorityToken = %q", c.AuthorityToken)
	}
	if c.StoreTimeout() != 10*time.Second {
		t.Errorf("StoreTimeout = %v, want 10s", c.StoreTimeout())
	}
	if c.RateLimitPerMinute != 0 {
		t.Errorf("RateLimitPerMinute = %d, want 0", c.RateLimitPerMinute)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
				c.StoreTimeoutSeconds, c.PublishTimeoutSeconds = 1, 1
				c.SlowQueryMillis, c.RateLimitPerMinute = 0, 0
			}),
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.StoreTimeoutSeconds, c.PublishTimeoutSeconds = 60, 60
			}),
			wantErr: false,
		},
		{
			name: "all optional backends set",
			cfg: with(func(c *Config) {
				c.DatabaseURL = "postgres://u:p@db/grievance"
				c.RedisURL = "rediss://cache:6380/1"
				c.SlackWebhookURL = "https://hooks.slack.com/services/x"
				c.PublicBaseURL = "https://grievance.example.edu"
			}),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       with(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:    "drain at upper bound",
			cfg:     with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 300, 300 }),
			wantErr: true, // budget must be greater than drain
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:    "budget is drain plus one",
			cfg:     with(func(c *Config) { c.ShutdownBudgetSeconds = 61 }),
			wantErr: false,
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       with(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       with(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Backends
		{
			name:      "negative max conns",
			cfg:       with(func(c *Config) { c.DBMaxConns = -1 }),
			wantErr:   true,
			errSubstr: []string{"DB_MAX_CONNS"},
		},
		{
			name:      "negative slow query",
			cfg:       with(func(c *Config) { c.SlowQueryMillis = -1 }),
			wantErr:   true,
			errSubstr: []string{"SLOW_QUERY_MS"},
		},
		{
			name:      "redis wrong scheme",
			cfg:       with(func(c *Config) { c.RedisURL = "http://cache:6379" }),
			wantErr:   true,
			errSubstr: []string{"REDIS_URL"},
		},
		{
			name:      "empty realtime prefix",
			cfg:       with(func(c *Config) { c.RealtimePrefix = "" }),
			wantErr:   true,
			errSubstr: []string{"REALTIME_CHANNEL_PREFIX"},
		},
		{
			name:      "relative public base url",
			cfg:       with(func(c *Config) { c.PublicBaseURL = "/grievance" }),
			wantErr:   true,
			errSubstr: []string{"PUBLIC_BASE_URL"},
		},
		// Authority token
		{
			name:      "empty authority token",
			cfg:       with(func(c *Config) { c.AuthorityToken = "" }),
			wantErr:   true,
			errSubstr: []string{"AUTHORITY_TOKEN is required"},
		},
		{
			name:      "short authority token",
			cfg:       with(func(c *Config) { c.AuthorityToken = "short" }),
			wantErr:   true,
			errSubstr: []string{"at least 16"},
		},
		// Timeouts and limits
		{
			name:      "store timeout zero",
			cfg:       with(func(c *Config) { c.StoreTimeoutSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"STORE_TIMEOUT_SECONDS"},
		},
		{
			name:      "publish timeout above max",
			cfg:       with(func(c *Config) { c.PublishTimeoutSeconds = 61 }),
			wantErr:   true,
			errSubstr: []string{"PUBLISH_TIMEOUT_SECONDS"},
		},
		{
			name:      "negative rate limit",
			cfg:       with(func(c *Config) { c.RateLimitPerMinute = -5 }),
			wantErr:   true,
			errSubstr: []string{"RATE_LIMIT_PER_MINUTE"},
		},
		// Error accumulation: all fields invalid
		{
			name:      "all fields invalid",
			cfg:       Config{},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "REALTIME_CHANNEL_PREFIX", "AUTHORITY_TOKEN", "STORE_TIMEOUT_SECONDS", "PUBLISH_TIMEOUT_SECONDS"},
		},
		// Extreme values
		{
			name: "extreme negative values",
			cfg: with(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, store, publish int
		token, prefix                       string
	}{
		{60, 90, 8080, 5, 3, testToken, "grievance"},
		{1, 2, 1, 1, 1, testToken, "g"},
		{299, 300, 65535, 60, 60, testToken, "g"},
		{0, 0, 0, 0, 0, "", ""},
		{-1, -1, -1, -1, -1, "", ""},
		{300, 300, 65535, 5, 3, testToken, "g"},
		{301, 302, 65536, 61, 61, "short", "g"},
		{150, 100, 8080, 5, 3, testToken, "g"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.store, s.publish, s.token, s.prefix)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, store, publish int, token, prefix string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			AuthorityToken:        token,
			RealtimePrefix:        prefix,
			StoreTimeoutSeconds:   store,
			PublishTimeoutSeconds: publish,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		tokenOK := len(token) >= 16
		prefixOK := prefix != ""
		storeOK := store >= 1 && store <= 60
		publishOK := publish >= 1 && publish <= 60

		allValid := drainOK && budgetOK && portOK && crossOK && tokenOK && prefixOK && storeOK && publishOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
