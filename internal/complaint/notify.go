package complaint

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// EventNotification is the realtime event type for a persisted notification.
const EventNotification = "notification"

// Event is a realtime message for a single user.
type Event struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	Payload any    `json:"payload"`
}

// Publisher delivers realtime events. Delivery is best effort: the
// Dispatcher logs and counts failures but never surfaces them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Publishers fans an event out to every publisher and returns the first error.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range ps {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Timeouts bounds calls to collaborators. Zero fields take defaults.
type Timeouts struct {
	Store   time.Duration
	Publish time.Duration
}

const (
	defaultStoreTimeout   = 5 * time.Second
	defaultPublishTimeout = 3 * time.Second
)

func (t Timeouts) withDefaults() Timeouts {
	if t.Store <= 0 {
		t.Store = defaultStoreTimeout
	}
	if t.Publish <= 0 {
		t.Publish = defaultPublishTimeout
	}
	return t
}

// NotifyOption customizes a notification created by Notify.
type NotifyOption func(*Notification)

// WithType sets the notification type. The default is info.
func WithType(t NotificationType) NotifyOption {
	return func(n *Notification) { n.Type = t }
}

// WithRelatedLink attaches a link the client can follow.
func WithRelatedLink(link string) NotifyOption {
	return func(n *Notification) { n.RelatedLink = link }
}

// Dispatcher persists notifications and hands them to the realtime publisher.
type Dispatcher struct {
	store    Store
	pub      Publisher
	logger   log.Logger
	hooks    Hooks
	timeouts Timeouts

	inflight sync.WaitGroup
}

// NewDispatcher creates a dispatcher. pub may be nil, in which case nothing
// is published.
func NewDispatcher(store Store, pub Publisher, logger log.Logger, hooks Hooks, t Timeouts) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		store:    store,
		pub:      pub,
		logger:   logger,
		hooks:    hooks,
		timeouts: t.withDefaults(),
	}
}

// Notify persists a notification for userID in its own unit of work and
// publishes it once committed.
func (d *Dispatcher) Notify(ctx context.Context, userID, message string, opts ...NotifyOption) (*Notification, error) {
	n := &Notification{UserID: userID, Message: message, Type: NotificationInfo}
	for _, o := range opts {
		o(n)
	}

	sctx, cancel := context.WithTimeout(ctx, d.timeouts.Store)
	defer cancel()

	err := d.store.WithTx(sctx, func(tx Tx) error {
		return d.create(sctx, tx, n)
	})
	if err != nil {
		return nil, persistErr("notify", err)
	}

	d.delivered(ctx, n)
	return n, nil
}

// create validates n and inserts it inside an existing unit of work.
func (d *Dispatcher) create(ctx context.Context, tx Tx, n *Notification) error {
	if strings.TrimSpace(n.UserID) == "" {
		return &ValidationError{Field: "userId", Reason: "is required"}
	}
	if strings.TrimSpace(n.Message) == "" {
		return &ValidationError{Field: "message", Reason: "is required"}
	}
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	if !n.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: "is not a known notification type"}
	}
	n.IsRead = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return tx.InsertNotification(ctx, n)
}

// delivered runs the post-commit side effects for n.
func (d *Dispatcher) delivered(ctx context.Context, n *Notification) {
	d.hooks.notified(n.Type)
	if d.pub == nil {
		return
	}

	ev := Event{Type: EventNotification, UserID: n.UserID, Payload: *n}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeouts.Publish)
		defer cancel()

		if err := d.pub.Publish(pctx, ev); err != nil {
			d.logger.Warn(pctx, "realtime publish failed",
				"error", err,
				"notification_id", n.ID,
				"user_id", n.UserID,
			)
			d.hooks.published("error")
			return
		}
		d.hooks.published("ok")
	}()
}

// Wait blocks until every in-flight publish has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// MarkRead marks one of userID's notifications read. Marking an already
// read notification succeeds. A notification belonging to someone else is
// reported as ErrNotFound.
func (d *Dispatcher) MarkRead(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return &ValidationError{Field: "id", Reason: "and user are required"}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Store)
	defer cancel()

	return persistErr("mark read", d.store.UpdateNotificationRead(ctx, id, userID))
}

// MarkAllRead marks every unread notification of userID read and returns
// how many changed. Calling it again returns 0.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, &ValidationError{Field: "userId", Reason: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Store)
	defer cancel()

	n, err := d.store.UpdateAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, persistErr("mark all read", err)
	}
	return n, nil
}

// List returns userID's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Store)
	defer cancel()

	ns, err := d.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, persistErr("list notifications", err)
	}
	return ns, nil
}
