package complaint

// transitions is the complete edge table of the lifecycle state machine.
// Nothing ever moves back into Submitted.
var transitions = map[Status][]Status{
	StatusSubmitted:  {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected, StatusClosed},
	StatusResolved:   {StatusClosed},
	StatusRejected:   nil,
	StatusClosed:     nil,
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// NextStatuses returns the statuses reachable from s in one step.
func (s Status) NextStatuses() []Status {
	return append([]Status(nil), transitions[s]...)
}

// checkTransition returns a *TransitionError when from→to is not an edge.
func checkTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// statusMessage is the timeline text recorded for a status change.
func statusMessage(to Status) string {
	return "Status updated to " + string(to)
}

// ownerMessage is the notification text sent to the complaint owner.
func ownerMessage(title string, to Status) string {
	return "Your complaint \"" + title + "\" is now " + string(to)
}

// notificationTypeFor picks how the owner notification is rendered.
func notificationTypeFor(to Status) NotificationType {
	switch to {
	case StatusResolved:
		return NotificationSuccess
	case StatusRejected:
		return NotificationWarning
	default:
		return NotificationInfo
	}
}
