// Package complaintapi exposes the complaint engine over JSON/HTTP.
package complaintapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/grievance/internal/authmw"
	"github.com/linnemanlabs/grievance/internal/complaint"
	"github.com/linnemanlabs/grievance/internal/ratelimit"
)

// ComplaintService defines the business operations complaintapi needs.
type ComplaintService interface {
	Create(ctx context.Context, sub complaint.Submission) (*complaint.CreateResult, error)
	Transition(ctx context.Context, id string, target complaint.Status, actorID string) (*complaint.TransitionResult, error)
	Get(ctx context.Context, id string) (*complaint.Detail, error)
	List(ctx context.Context, f complaint.Filter) ([]*complaint.Complaint, error)
	Summary(ctx context.Context) (*complaint.Summary, error)
	Trends(ctx context.Context) ([]complaint.MonthCount, error)
	Vote(ctx context.Context, id string) (int64, error)
}

// NotificationService defines the recipient-side notification operations.
type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*complaint.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger         log.Logger
	svc            ComplaintService
	notes          NotificationService
	limiter        ratelimit.Limiter
	metrics        *Metrics
	authorityToken string
}

// Option configures an API.
type Option func(*API)

// WithLimiter enables per-caller rate limiting on every API route.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(a *API) { a.limiter = l }
}

// WithAuthorityToken sets the bearer token that grants privileged access.
func WithAuthorityToken(token string) Option {
	return func(a *API) { a.authorityToken = token }
}

// WithMetrics records API-level metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// New creates a new API handler.
func New(logger log.Logger, svc ComplaintService, notes NotificationService, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("complaint service is required"))
	}
	if notes == nil {
		panic(xerrors.New("notification service is required"))
	}
	a := &API{
		logger: logger,
		svc:    svc,
		notes:  notes,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.Identify(a.authorityToken))
		r.Use(a.audit)
		r.Use(a.rateLimit)

		r.Post("/categorize", a.handleCategorize)
		r.Post("/logs", a.handleClientLog)
		r.Get("/analytics/summary", a.handleSummary)
		r.Get("/analytics/trends", a.handleTrends)

		r.Route("/complaints", func(r chi.Router) {
			r.Get("/", a.handleListComplaints)
			r.Get("/{id}", a.handleGetComplaint)
			r.With(authmw.RequireActor).Post("/", a.handleCreateComplaint)
			r.With(authmw.RequireActor).Post("/{id}/vote", a.handleVote)
			r.With(authmw.RequireActor, authmw.RequireAuthority).Put("/{id}/status", a.handleTransition)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authmw.RequireActor)
			r.Get("/", a.handleListNotifications)
			r.Put("/read-all", a.handleMarkAllRead)
			r.Put("/{id}/read", a.handleMarkRead)
		})
	})
}

func viewerFrom(ctx context.Context) complaint.Viewer {
	id := authmw.FromContext(ctx)
	return complaint.Viewer{ActorID: id.ActorID, Privileged: id.Privileged}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing useful to do with an encode error once the header is out
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &complaint.ValidationError{Field: "body", Reason: "is not valid JSON"}
	}
	return nil
}
