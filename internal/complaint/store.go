package complaint

import (
	"context"
	"time"
)

// Store is the persistence interface for complaints, their timelines,
// notifications and vote counters.
//
// Reads outside WithTx may observe slightly stale data. Implementations must
// return an error wrapping ErrNotFound for missing rows where noted.
type Store interface {
	// WithTx runs fn in a single atomic unit of work. If fn returns an error
	// nothing it wrote becomes visible.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetComplaint(ctx context.Context, id string) (*Complaint, bool, error)
	ListComplaints(ctx context.Context, f Filter) ([]*Complaint, error)
	ListTimeline(ctx context.Context, complaintID string) ([]*TimelineEvent, error)
	QueryOpenComplaintsByCategory(ctx context.Context, category Category) ([]ComplaintText, error)

	// IncrementVotes atomically adds one vote and returns the new count.
	// Returns ErrNotFound if the complaint does not exist.
	IncrementVotes(ctx context.Context, id string) (int64, error)

	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)

	// UpdateNotificationRead marks one of userID's notifications read.
	// Returns ErrNotFound if no such notification belongs to userID.
	UpdateNotificationRead(ctx context.Context, id, userID string) error

	// UpdateAllNotificationsRead marks every unread notification of userID
	// read and returns how many changed.
	UpdateAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	Summary(ctx context.Context) (*Summary, error)

	// Trends counts complaints per creation month, oldest month first.
	// Months without complaints are omitted.
	Trends(ctx context.Context) ([]MonthCount, error)
}

// Tx is the write side of a unit of work. IDs are assigned by the store on insert.
type Tx interface {
	InsertComplaint(ctx context.Context, c *Complaint) error

	// LockComplaint loads a complaint and holds it against concurrent
	// writers until the unit of work ends.
	LockComplaint(ctx context.Context, id string) (*Complaint, bool, error)

	// UpdateComplaintStatus returns ErrNotFound if the complaint does not exist.
	UpdateComplaintStatus(ctx context.Context, id string, status Status, updatedAt time.Time) error

	AppendTimelineEvent(ctx context.Context, ev *TimelineEvent) error
	InsertNotification(ctx context.Context, n *Notification) error
}
