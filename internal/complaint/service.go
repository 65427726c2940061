package complaint

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

var tracer = otel.Tracer("github.com/linnemanlabs/grievance/internal/complaint")

const (
	submittedMessage = "Complaint submitted successfully"
	defaultListLimit = 50
	maxListLimit     = 200
)

// Submission is a new complaint as entered by its owner. An empty Category
// is filled in by the categorizer.
type Submission struct {
	Title       string
	Description string
	Category    Category
	SubCategory string
	Priority    Priority
	Location    string
	IsAnonymous bool
	OwnerID     string
}

// CreateResult is the outcome of a submission. Categorization is set only
// when the category was chosen automatically.
type CreateResult struct {
	Complaint         *Complaint
	DuplicateWarnings []DuplicateCandidate
	Categorization    *Categorization
}

// TransitionResult carries everything a status change wrote.
type TransitionResult struct {
	Complaint    *Complaint
	Event        *TimelineEvent
	Notification *Notification
}

// Detail is a complaint together with its timeline, oldest event first.
type Detail struct {
	Complaint *Complaint
	Timeline  []*TimelineEvent
}

// Service is the business boundary for complaint lifecycle operations.
// It is safe for concurrent use.
type Service struct {
	store      Store
	dispatcher *Dispatcher
	detector   *DuplicateDetector
	votes      *Aggregator
	logger     log.Logger
	hooks      Hooks
	timeout    time.Duration
}

// NewService creates a complaint service.
func NewService(store Store, dispatcher *Dispatcher, logger log.Logger, hooks Hooks, t Timeouts) *Service {
	if store == nil {
		panic(xerrors.New("complaint store is required"))
	}
	if dispatcher == nil {
		panic(xerrors.New("notification dispatcher is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	t = t.withDefaults()
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		detector:   NewDuplicateDetector(store, logger, hooks),
		votes:      NewAggregator(store, hooks, t.Store),
		logger:     logger,
		hooks:      hooks,
		timeout:    t.Store,
	}
}

// Create validates and persists a new complaint with its submission event.
// Duplicate warnings are advisory and never block the submission.
func (s *Service) Create(ctx context.Context, sub Submission) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "complaint.create")
	defer span.End()

	if err := validateSubmission(&sub); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &CreateResult{}
	auto := sub.Category == ""
	if auto {
		cat := Categorize(sub.Title + " " + sub.Description)
		sub.Category = cat.Category
		res.Categorization = &cat
	}
	span.SetAttributes(
		attribute.String("grievance.complaint.category", string(sub.Category)),
		attribute.Bool("grievance.complaint.auto_categorized", auto),
	)

	dctx, dcancel := context.WithTimeout(ctx, s.timeout)
	res.DuplicateWarnings = s.detector.FindSimilar(dctx, sub.Title+" "+sub.Description, sub.Category)
	dcancel()

	now := time.Now().UTC()
	c := &Complaint{
		Title:       sub.Title,
		Description: sub.Description,
		Category:    sub.Category,
		SubCategory: sub.SubCategory,
		Status:      StatusSubmitted,
		Priority:    sub.Priority,
		Location:    sub.Location,
		IsAnonymous: sub.IsAnonymous,
		OwnerID:     sub.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.WithTx(wctx, func(tx Tx) error {
		if err := tx.InsertComplaint(wctx, c); err != nil {
			return err
		}
		owner := c.OwnerID
		return tx.AppendTimelineEvent(wctx, &TimelineEvent{
			ComplaintID: c.ID,
			ActorID:     &owner,
			Type:        EventSubmission,
			Message:     submittedMessage,
			CreatedAt:   now,
		})
	})
	if err != nil {
		err = persistErr("create complaint", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("grievance.complaint.id", c.ID),
		attribute.Int("grievance.complaint.duplicates", len(res.DuplicateWarnings)),
	)
	s.hooks.created(c.Category, auto)
	s.logger.Info(ctx, "complaint submitted",
		"complaint_id", c.ID,
		"category", c.Category,
		"priority", c.Priority,
		"duplicates", len(res.DuplicateWarnings),
	)

	res.Complaint = c
	return res, nil
}

// Transition moves complaint id to target. The status update, the timeline
// event and the owner notification commit together or not at all. The
// notification is published after commit.
func (s *Service) Transition(ctx context.Context, id string, target Status, actorID string) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "complaint.transition", trace.WithAttributes(
		attribute.String("grievance.complaint.id", id),
		attribute.String("grievance.complaint.target", string(target)),
	))
	defer span.End()

	if id == "" {
		return nil, &ValidationError{Field: "id", Reason: "is required"}
	}
	// status_change events always name a human actor; nil is reserved for system events
	if strings.TrimSpace(actorID) == "" {
		err := &ValidationError{Field: "actor", Reason: "is required"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !target.IsValid() {
		err := &ValidationError{Field: "status", Reason: "is not a known status"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		res  TransitionResult
		from Status
	)

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.WithTx(wctx, func(tx Tx) error {
		c, ok, err := tx.LockComplaint(wctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		from = c.Status

		if err := checkTransition(c.Status, target); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.UpdateComplaintStatus(wctx, id, target, now); err != nil {
			return err
		}
		c.Status = target
		c.UpdatedAt = now

		ev := &TimelineEvent{
			ComplaintID: id,
			Type:        EventStatusChange,
			Message:     statusMessage(target),
			ActorID:     &actorID,
			CreatedAt:   now,
		}
		if err := tx.AppendTimelineEvent(wctx, ev); err != nil {
			return err
		}

		n := &Notification{
			UserID:      c.OwnerID,
			Message:     ownerMessage(c.Title, target),
			Type:        notificationTypeFor(target),
			RelatedLink: "/complaints/" + id,
			CreatedAt:   now,
		}
		if err := s.dispatcher.create(wctx, tx, n); err != nil {
			return err
		}

		res = TransitionResult{Complaint: c, Event: ev, Notification: n}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrInvalidTransition) {
			outcome = "rejected"
		}
		if from != "" {
			s.hooks.transitioned(from, target, outcome)
		}
		err = persistErr("transition", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.hooks.transitioned(from, target, "ok")
	s.dispatcher.delivered(ctx, res.Notification)

	s.logger.Info(ctx, "complaint status changed",
		"complaint_id", id,
		"from", from,
		"to", target,
		"actor", actorID,
	)
	return &res, nil
}

// Get returns a complaint and its timeline.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, ok, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, persistErr("get complaint", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	events, err := s.store.ListTimeline(ctx, id)
	if err != nil {
		return nil, persistErr("list timeline", err)
	}
	return &Detail{Complaint: c, Timeline: events}, nil
}

// List returns complaints matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Complaint, error) {
	if f.Category != "" && !f.Category.IsValid() {
		return nil, &ValidationError{Field: "category", Reason: "is not a known category"}
	}
	if f.Status != "" && !f.Status.IsValid() {
		return nil, &ValidationError{Field: "status", Reason: "is not a known status"}
	}
	if f.Offset < 0 {
		return nil, &ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cs, err := s.store.ListComplaints(ctx, f)
	if err != nil {
		return nil, persistErr("list complaints", err)
	}
	return cs, nil
}

// Summary returns headline counts. Pending covers Submitted and In Progress.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sum, err := s.store.Summary(ctx)
	if err != nil {
		return nil, persistErr("summary", err)
	}
	return sum, nil
}

// Trends returns complaint counts per creation month, oldest first.
func (s *Service) Trends(ctx context.Context) ([]MonthCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	months, err := s.store.Trends(ctx)
	if err != nil {
		return nil, persistErr("trends", err)
	}
	if months == nil {
		months = []MonthCount{}
	}
	return months, nil
}

// Vote adds one support vote to complaint id and returns the new total.
func (s *Service) Vote(ctx context.Context, id string) (int64, error) {
	return s.votes.Vote(ctx, id)
}

// Notifications exposes the dispatcher for recipient-side operations.
func (s *Service) Notifications() *Dispatcher {
	return s.dispatcher
}

func validateSubmission(sub *Submission) error {
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.OwnerID = strings.TrimSpace(sub.OwnerID)

	if sub.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if sub.Description == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if sub.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Reason: "is required"}
	}
	if sub.Category != "" && !sub.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: "is not a known category"}
	}
	if sub.Priority == "" {
		sub.Priority = PriorityMedium
	}
	if !sub.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: "must be one of low, medium, high, critical"}
	}
	return nil
}
