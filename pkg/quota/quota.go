// Package quota enforces the per-user daily cap on face gate attempts.
// Counters roll over at local midnight by calendar-date comparison, not
// elapsed time, and can be reset administratively.
package quota

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Counter is one user's attempt count for a calendar day.
type Counter struct {
	Count int    `json:"count"`
	Day   string `json:"day"` // "2006-01-02"
}

// ErrNoCounter is returned by a CounterStore when a user has no counter.
var ErrNoCounter = errors.New("no usage counter")

// CounterStore persists per-user counters.
type CounterStore interface {
	Get(ctx context.Context, userID string) (Counter, error)
	Set(ctx context.Context, userID string, c Counter) error
	Delete(ctx context.Context, userID string) error
}

// Tracker applies the daily limit on top of a CounterStore.
type Tracker struct {
	mu    sync.Mutex
	store CounterStore
	limit int
}

// NewTracker creates a tracker with the given daily limit.
func NewTracker(store CounterStore, limit int) *Tracker {
	return &Tracker{store: store, limit: limit}
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// dayKey formats a wall-clock date for rollover comparison.
func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// CheckAndReserve tests the user's remaining quota for the given moment
// and, when an attempt is allowed, consumes one unit. It returns the
// remaining quota after the reservation and whether the attempt may
// proceed. A stale counter from a previous day resets before the test.
func (t *Tracker) CheckAndReserve(ctx context.Context, userID string, now time.Time) (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.store.Get(ctx, userID)
	if errors.Is(err, ErrNoCounter) {
		c = Counter{}
	} else if err != nil {
		return 0, false, err
	}

	day := dayKey(now)
	if c.Day != day {
		c = Counter{Day: day}
	}

	if c.Count >= t.limit {
		return 0, false, nil
	}

	c.Count++
	if err := t.store.Set(ctx, userID, c); err != nil {
		return 0, false, err
	}
	return t.limit - c.Count, true, nil
}

// Remaining reports the user's remaining quota without consuming any.
func (t *Tracker) Remaining(ctx context.Context, userID string, now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.store.Get(ctx, userID)
	if errors.Is(err, ErrNoCounter) {
		return t.limit, nil
	} else if err != nil {
		return 0, err
	}

	if c.Day != dayKey(now) {
		return t.limit, nil
	}
	remaining := t.limit - c.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears a user's counter. This is the administrative reset,
// independent of the date rollover.
func (t *Tracker) Reset(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(ctx, userID)
}
