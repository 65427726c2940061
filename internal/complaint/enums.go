package complaint

import "strings"

// Category is the classification bucket of a complaint.
type Category string

const (
	CategoryTechnology     Category = "Technology"
	CategoryHostel         Category = "Hostel"
	CategoryAcademic       Category = "Academic"
	CategoryInfrastructure Category = "Infrastructure"
	CategoryTransport      Category = "Transport"
	CategorySafety         Category = "Safety"

	// CategoryOther is assigned when nothing in the keyword table matches.
	CategoryOther Category = "Other"
)

// categoryRule pairs a category with the keywords that vote for it.
type categoryRule struct {
	Category Category
	Keywords []string
}

// categoryTable is the ordered keyword table used by Categorize.
//
// Order matters: when two categories match the same number of keywords the
// one listed first wins. Keep new categories appended at the end unless the
// tie-break behavior is meant to change.
var categoryTable = []categoryRule{
	{CategoryTechnology, []string{"wifi", "internet", "network", "computer", "printer", "software", "login", "server", "slow", "connect"}},
	{CategoryHostel, []string{"room", "bed", "mess", "food", "water", "bathroom", "clean", "laundry", "warden", "light", "fan"}},
	{CategoryAcademic, []string{"class", "lecture", "exam", "grade", "professor", "library", "book", "attendance", "lab"}},
	{CategoryInfrastructure, []string{"ac", "chair", "desk", "broken", "wall", "door", "window", "electricity", "power", "road"}},
	{CategoryTransport, []string{"bus", "shuttle", "driver", "parking", "late", "route", "seat"}},
	{CategorySafety, []string{"security", "guard", "theft", "stolen", "harassment", "fight", "emergency"}},
}

// Categories returns the known categories in tie-break order, followed by Other.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable)+1)
	for _, r := range categoryTable {
		out = append(out, r.Category)
	}
	return append(out, CategoryOther)
}

// IsValid reports whether c is one of the fixed categories or Other.
func (c Category) IsValid() bool {
	if c == CategoryOther {
		return true
	}
	for _, r := range categoryTable {
		if r.Category == c {
			return true
		}
	}
	return false
}

// ParseCategory resolves s case-insensitively against the category table.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Status tracks where a complaint is in its lifecycle.
type Status string

const (
	// StatusSubmitted is the initial state of every complaint
	StatusSubmitted Status = "Submitted"

	// StatusInProgress means an authority has picked the complaint up
	StatusInProgress Status = "In Progress"

	// StatusResolved means the issue was fixed
	StatusResolved Status = "Resolved"

	// StatusRejected means the complaint will not be acted on
	StatusRejected Status = "Rejected"

	// StatusClosed means the complaint is archived from the active queue
	StatusClosed Status = "Closed"
)

// Statuses returns every lifecycle status, initial state first.
func Statuses() []Status {
	return []Status{StatusSubmitted, StatusInProgress, StatusResolved, StatusRejected, StatusClosed}
}

// IsValid reports whether s is a known lifecycle status.
func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusInProgress, StatusResolved, StatusRejected, StatusClosed:
		return true
	default:
		return false
	}
}

// IsOpen reports whether complaints in this status take part in duplicate detection.
func (s Status) IsOpen() bool {
	return s != StatusResolved && s != StatusClosed
}

// ParseStatus accepts the persisted value ("In Progress") as well as the
// compact spellings clients tend to send ("InProgress", "in_progress").
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", " ", "", "-", "").Replace(norm)
	for _, st := range Statuses() {
		if strings.ToLower(strings.ReplaceAll(string(st), " ", "")) == norm {
			return st, true
		}
	}
	return "", false
}

// Priority is the urgency assigned by the submitter.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// EventType classifies a timeline entry.
type EventType string

const (
	EventSubmission   EventType = "submission"
	EventStatusChange EventType = "status_change"
	EventComment      EventType = "comment"
	EventVote         EventType = "vote"
)

// NotificationType drives how a client renders a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	default:
		return false
	}
}
