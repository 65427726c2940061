// Package complaint provides the intake-and-lifecycle engine for grievances.
// It defines the Service (creation, status transitions, reads), the
// Categorizer and DuplicateDetector, the Dispatcher for owner notifications,
// the vote Aggregator, the Store interface (persistence), and domain models.
package complaint
