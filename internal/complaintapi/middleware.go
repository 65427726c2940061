package complaintapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/grievance/internal/authmw"
)

// Metrics holds Prometheus metrics for the HTTP layer.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	AuditedRequests    *prometheus.CounterVec
}

// NewMetrics registers and returns API metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_api_rate_limit_decisions_total",
			Help: "Rate limiter decisions by outcome (allowed, limited, error).",
		}, []string{"outcome"}),
		AuditedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_api_audited_requests_total",
			Help: "State-changing API requests by method and status class.",
		}, []string{"method", "class"}),
	}
	reg.MustRegister(m.RateLimitDecisions, m.AuditedRequests)
	return m
}

func (a *API) countDecision(outcome string) {
	if a.metrics != nil {
		a.metrics.RateLimitDecisions.WithLabelValues(outcome).Inc()
	}
}

// rateLimit rejects callers over budget with 429. Authenticated callers are
// keyed by actor id, anonymous ones by remote address. A limiter failure lets
// the request through.
func (a *API) rateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := a.limiter.Allow(r.Context(), limitKey(r))
		if err != nil {
			a.countDecision("error")
			a.logger.Warn(r.Context(), "rate limiter unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			a.countDecision("limited")
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(d.RetryAfter)))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}

		a.countDecision("allowed")
		next.ServeHTTP(w, r)
	})
}

func limitKey(r *http.Request) string {
	if id := authmw.FromContext(r.Context()).ActorID; id != "" {
		return "actor:" + id
	}
	return "ip:" + remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// audit writes one structured log line per state-changing request, after the
// handler has run, naming who did what and how it ended.
func (a *API) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		id := authmw.FromContext(r.Context())
		a.logger.Info(r.Context(), "audit",
			"actor", id.ActorID,
			"privileged", id.Privileged,
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if a.metrics != nil {
			a.metrics.AuditedRequests.WithLabelValues(r.Method, strconv.Itoa(status/100)+"xx").Inc()
		}
	})
}
