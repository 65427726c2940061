package complaint

import "time"

// Complaint is a single reported issue with a lifecycle status.
type Complaint struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	SubCategory string    `json:"subCategory,omitempty"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Location    string    `json:"location,omitempty"`
	IsAnonymous bool      `json:"isAnonymous"`
	OwnerID     string    `json:"ownerId,omitempty"`
	Votes       int64     `json:"votes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TimelineEvent is an append-only audit record of something that happened to a complaint.
// ActorID is nil for system-generated events.
type TimelineEvent struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId"`
	ActorID     *string   `json:"actorId"`
	Type        EventType `json:"type"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification is a message for a single recipient.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	IsRead      bool             `json:"isRead"`
	RelatedLink string           `json:"relatedLink,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// DuplicateCandidate is an open complaint that looks textually similar to a
// new submission. It is never persisted.
type DuplicateCandidate struct {
	ComplaintID     string  `json:"complaintId"`
	Title           string  `json:"title"`
	SimilarityScore float64 `json:"similarityScore"`
}

// ComplaintText is the projection the duplicate detector compares against.
type ComplaintText struct {
	ID          string
	Title       string
	Description string
}

// Filter narrows ListComplaints. Zero values mean "any".
type Filter struct {
	Category Category
	Status   Status
	OwnerID  string
	Limit    int
	Offset   int
}

// Summary is the headline count set for dashboards.
type Summary struct {
	Total    int64 `json:"total"`
	Resolved int64 `json:"resolved"`
	Pending  int64 `json:"pending"`
}

// MonthCount is the number of complaints filed in one calendar month (UTC).
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// Viewer identifies who is reading a complaint.
type Viewer struct {
	ActorID    string
	Privileged bool
}

// View returns the copy of c that may be shown to v. The owner of an
// anonymous complaint is hidden from everyone except the owner and
// privileged readers.
func (c *Complaint) View(v Viewer) *Complaint {
	cp := *c
	if cp.IsAnonymous && !v.Privileged && (v.ActorID == "" || v.ActorID != c.OwnerID) {
		cp.OwnerID = ""
	}
	return &cp
}

// View applies the same owner-hiding rules as Complaint.View to a timeline
// entry: the submission event of an anonymous complaint carries the owner as actor.
func (e *TimelineEvent) View(c *Complaint, v Viewer) *TimelineEvent {
	cp := *e
	if cp.ActorID != nil && c.View(v).OwnerID == "" && *cp.ActorID == c.OwnerID {
		cp.ActorID = nil
	}
	return &cp
}
