package complaint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// mockStore implements Store for testing. Writes made inside WithTx are
// staged and only applied when fn returns nil.
type mockStore struct {
	mu            sync.Mutex
	seq           int
	complaints    map[string]*Complaint
	events        []*TimelineEvent
	notifications []*Notification

	// failOn names a Tx method that should fail with txErr.
	failOn   string
	txErr    error
	queryErr error
	readErr  error
}

func newMockStore() *mockStore {
	return &mockStore{complaints: make(map[string]*Complaint)}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) seed(c *Complaint) *Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = m.nextID("c")
	}
	cp := *c
	m.complaints[c.ID] = &cp
	return c
}

func (m *mockStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &mockTx{m: m, staged: make(map[string]*Complaint)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, c := range tx.staged {
		m.complaints[id] = c
	}
	m.events = append(m.events, tx.events...)
	m.notifications = append(m.notifications, tx.notifications...)
	return nil
}

func (m *mockStore) GetComplaint(_ context.Context, id string) (*Complaint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	c, ok := m.complaints[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (m *mockStore) ListComplaints(_ context.Context, f Filter) ([]*Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*Complaint
	for _, c := range m.complaints {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) ListTimeline(_ context.Context, complaintID string) ([]*TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*TimelineEvent
	for _, ev := range m.events {
		if ev.ComplaintID == complaintID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) QueryOpenComplaintsByCategory(_ context.Context, category Category) ([]ComplaintText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []ComplaintText
	for _, c := range m.complaints {
		if c.Category == category && c.Status.IsOpen() {
			out = append(out, ComplaintText{ID: c.ID, Title: c.Title, Description: c.Description})
		}
	}
	return out, nil
}

func (m *mockStore) IncrementVotes(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.Votes++
	return c.Votes, nil
}

func (m *mockStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) UpdateNotificationRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) UpdateAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (m *mockStore) Summary(_ context.Context) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	sum := &Summary{Total: int64(len(m.complaints))}
	for _, c := range m.complaints {
		switch c.Status {
		case StatusResolved:
			sum.Resolved++
		case StatusSubmitted, StatusInProgress:
			sum.Pending++
		}
	}
	return sum, nil
}

func (m *mockStore) Trends(_ context.Context) ([]MonthCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	counts := make(map[string]int64)
	for _, c := range m.complaints {
		counts[c.CreatedAt.UTC().Format("2006-01")]++
	}
	out := make([]MonthCount, 0, len(counts))
	for mo, n := range counts {
		out = append(out, MonthCount{Month: mo, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m *mockStore) complaint(id string) *Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (m *mockStore) eventsFor(id string, typ EventType) []*TimelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TimelineEvent
	for _, ev := range m.events {
		if ev.ComplaintID == id && ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockStore) notificationsFor(userID string) []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type mockTx struct {
	m             *mockStore
	staged        map[string]*Complaint
	events        []*TimelineEvent
	notifications []*Notification
}

func (t *mockTx) fail(op string) error {
	if t.m.failOn == op {
		return t.m.txErr
	}
	return nil
}

func (t *mockTx) InsertComplaint(_ context.Context, c *Complaint) error {
	if err := t.fail("InsertComplaint"); err != nil {
		return err
	}
	c.ID = t.m.nextID("c")
	cp := *c
	t.staged[c.ID] = &cp
	return nil
}

func (t *mockTx) LockComplaint(_ context.Context, id string) (*Complaint, bool, error) {
	if err := t.fail("LockComplaint"); err != nil {
		return nil, false, err
	}
	if c, ok := t.staged[id]; ok {
		cp := *c
		return &cp, true, nil
	}
	c, ok := t.m.complaints[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (t *mockTx) UpdateComplaintStatus(_ context.Context, id string, status Status, updatedAt time.Time) error {
	if err := t.fail("UpdateComplaintStatus"); err != nil {
		return err
	}
	c, ok := t.staged[id]
	if !ok {
		orig, found := t.m.complaints[id]
		if !found {
			return ErrNotFound
		}
		cp := *orig
		c = &cp
		t.staged[id] = c
	}
	c.Status = status
	c.UpdatedAt = updatedAt
	return nil
}

func (t *mockTx) AppendTimelineEvent(_ context.Context, ev *TimelineEvent) error {
	if err := t.fail("AppendTimelineEvent"); err != nil {
		return err
	}
	ev.ID = t.m.nextID("ev")
	cp := *ev
	t.events = append(t.events, &cp)
	return nil
}

func (t *mockTx) InsertNotification(_ context.Context, n *Notification) error {
	if err := t.fail("InsertNotification"); err != nil {
		return err
	}
	n.ID = t.m.nextID("n")
	cp := *n
	t.notifications = append(t.notifications, &cp)
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
