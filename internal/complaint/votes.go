package complaint

import (
	"context"
	"time"
)

// VoteCounter is the slice of Store the Aggregator needs.
type VoteCounter interface {
	IncrementVotes(ctx context.Context, id string) (int64, error)
}

// Aggregator records support votes. The increment itself is a single atomic
// store operation, so concurrent votes are never lost.
type Aggregator struct {
	store   VoteCounter
	hooks   Hooks
	timeout time.Duration
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store VoteCounter, hooks Hooks, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Aggregator{store: store, hooks: hooks, timeout: timeout}
}

// Vote adds one vote to complaint id and returns the new total.
func (a *Aggregator) Vote(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, &ValidationError{Field: "id", Reason: "is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	votes, err := a.store.IncrementVotes(ctx, id)
	if err != nil {
		return 0, persistErr("vote", err)
	}
	a.hooks.voted()
	return votes, nil
}
