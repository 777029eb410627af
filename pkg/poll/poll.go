// Package poll provides the bounded wait used by every wait point in the
// login flow and the publish workflows.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned when the ceiling elapses before the predicate matched.
var ErrTimedOut = errors.New("poll: timed out")

// Predicate reports whether the awaited condition holds. A non-nil error
// aborts the wait immediately.
type Predicate func() (bool, error)

// Until evaluates fn immediately and then every interval until it reports
// true, returns an error, ctx is done, or ceiling elapses. The predicate is
// always evaluated at least once, even with a zero ceiling.
func Until(ctx context.Context, interval, ceiling time.Duration, fn Predicate) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := fn()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			// One last look so a condition that became true on the boundary counts.
			ok, err := fn()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			return ErrTimedOut
		case <-ticker.C:
		}
	}
}

// Sleep pauses for d or until ctx is done. Used for settle delays.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
