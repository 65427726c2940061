// Package memstore provides an in-memory implementation of complaint.Store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

const monthLayout = "2006-01"

// Store holds complaints, timelines and notifications in memory. Suitable for dev/testing.
//
// A unit of work holds the write lock from start to commit, so units of work
// on the same store are serialized.
type Store struct {
	mu            sync.RWMutex
	complaints    map[string]*complaint.Complaint
	order         []string                             // complaint IDs in insertion order
	timeline      map[string][]*complaint.TimelineEvent // complaint ID -> events
	notifications map[string]*complaint.Notification
	inbox         map[string][]string // user ID -> notification IDs in insertion order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		complaints:    make(map[string]*complaint.Complaint),
		timeline:      make(map[string][]*complaint.TimelineEvent),
		notifications: make(map[string]*complaint.Notification),
		inbox:         make(map[string][]string),
	}
}

var _ complaint.Store = (*Store)(nil)

// WithTx runs fn with staged writes that are applied only if fn succeeds and
// ctx is still live.
func (s *Store) WithTx(ctx context.Context, fn func(tx complaint.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{store: s, staged: make(map[string]*complaint.Complaint)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// GetComplaint returns a copy of the complaint with the given ID.
func (s *Store) GetComplaint(_ context.Context, id string) (*complaint.Complaint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// ListComplaints returns copies of matching complaints, newest first.
func (s *Store) ListComplaints(_ context.Context, f complaint.Filter) ([]*complaint.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*complaint.Complaint, 0)
	skipped := 0
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.complaints[s.order[i]]
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && c.OwnerID != f.OwnerID {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		cp := *c
		out = append(out, &cp)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// ListTimeline returns copies of a complaint's events, oldest first.
func (s *Store) ListTimeline(_ context.Context, complaintID string) ([]*complaint.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.timeline[complaintID]
	out := make([]*complaint.TimelineEvent, 0, len(events))
	for _, ev := range events {
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

// QueryOpenComplaintsByCategory returns the text of every open complaint in
// category, in insertion order.
func (s *Store) QueryOpenComplaintsByCategory(_ context.Context, category complaint.Category) ([]complaint.ComplaintText, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []complaint.ComplaintText
	for _, id := range s.order {
		c := s.complaints[id]
		if c.Category != category || !c.Status.IsOpen() {
			continue
		}
		out = append(out, complaint.ComplaintText{ID: c.ID, Title: c.Title, Description: c.Description})
	}
	return out, nil
}

// IncrementVotes adds one vote under the write lock.
func (s *Store) IncrementVotes(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.complaints[id]
	if !ok {
		return 0, fmt.Errorf("complaint %s: %w", id, complaint.ErrNotFound)
	}
	c.Votes++
	return c.Votes, nil
}

// ListNotifications returns copies of userID's notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]*complaint.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.inbox[userID]
	out := make([]*complaint.Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		n := s.notifications[ids[i]]
		if unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

// UpdateNotificationRead marks one notification read if it belongs to userID.
func (s *Store) UpdateNotificationRead(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, complaint.ErrNotFound)
	}
	n.IsRead = true
	return nil
}

// UpdateAllNotificationsRead marks all of userID's unread notifications read.
func (s *Store) UpdateAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, id := range s.inbox[userID] {
		if n := s.notifications[id]; !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

// Summary counts complaints by lifecycle bucket.
func (s *Store) Summary(_ context.Context) (*complaint.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &complaint.Summary{Total: int64(len(s.complaints))}
	for _, c := range s.complaints {
		switch c.Status {
		case complaint.StatusResolved:
			sum.Resolved++
		case complaint.StatusSubmitted, complaint.StatusInProgress:
			sum.Pending++
		}
	}
	return sum, nil
}

// Trends buckets complaints by UTC creation month.
func (s *Store) Trends(_ context.Context) ([]complaint.MonthCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, c := range s.complaints {
		counts[c.CreatedAt.UTC().Format(monthLayout)]++
	}

	out := make([]complaint.MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, complaint.MonthCount{Month: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// tx stages writes while the store's write lock is held.
type tx struct {
	store         *Store
	staged        map[string]*complaint.Complaint // complaint ID -> pending row
	inserted      []string
	events        []*complaint.TimelineEvent
	notifications []*complaint.Notification
}

func (t *tx) InsertComplaint(_ context.Context, c *complaint.Complaint) error {
	c.ID = ulid.Make().String()
	if c.Status == "" {
		c.Status = complaint.StatusSubmitted
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	cp := *c
	t.staged[c.ID] = &cp
	t.inserted = append(t.inserted, c.ID)
	return nil
}

func (t *tx) lookup(id string) (*complaint.Complaint, bool) {
	if c, ok := t.staged[id]; ok {
		return c, true
	}
	c, ok := t.store.complaints[id]
	if !ok {
		return nil, false
	}
	cp := *c
	t.staged[id] = &cp
	return &cp, true
}

func (t *tx) LockComplaint(_ context.Context, id string) (*complaint.Complaint, bool, error) {
	c, ok := t.lookup(id)
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (t *tx) UpdateComplaintStatus(_ context.Context, id string, status complaint.Status, updatedAt time.Time) error {
	c, ok := t.lookup(id)
	if !ok {
		return fmt.Errorf("complaint %s: %w", id, complaint.ErrNotFound)
	}
	c.Status = status
	c.UpdatedAt = updatedAt
	return nil
}

func (t *tx) AppendTimelineEvent(_ context.Context, ev *complaint.TimelineEvent) error {
	if _, ok := t.lookup(ev.ComplaintID); !ok {
		return fmt.Errorf("complaint %s: %w", ev.ComplaintID, complaint.ErrNotFound)
	}
	ev.ID = ulid.Make().String()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	cp := *ev
	t.events = append(t.events, &cp)
	return nil
}

func (t *tx) InsertNotification(_ context.Context, n *complaint.Notification) error {
	n.ID = ulid.Make().String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	t.notifications = append(t.notifications, &cp)
	return nil
}

func (t *tx) commit() {
	s := t.store
	for id, c := range t.staged {
		s.complaints[id] = c
	}
	s.order = append(s.order, t.inserted...)
	for _, ev := range t.events {
		s.timeline[ev.ComplaintID] = append(s.timeline[ev.ComplaintID], ev)
	}
	for _, n := range t.notifications {
		s.notifications[n.ID] = n
		s.inbox[n.UserID] = append(s.inbox[n.UserID], n.ID)
	}
}
