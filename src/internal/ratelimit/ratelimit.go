// Package ratelimit serializes access to a shared resource and spaces
// successive uses by a fixed interval.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limited guards a resource of type T. Only one operation runs at a time and
// the start of each operation is at least Interval after the start of the
// previous one.
type Limited[T any] struct {
	mu       sync.Mutex
	resource T
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wraps resource. A non-positive interval only serializes.
func New[T any](resource T, interval time.Duration) *Limited[T] {
	if interval < 0 {
		interval = 0
	}
	return &Limited[T]{
		resource: resource,
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval reports the configured spacing.
func (l *Limited[T]) Interval() time.Duration { return l.interval }

// Use runs op against the guarded resource once the interval since the last
// use has passed. The lock is held for the whole wait and call. If ctx ends
// while waiting, op is not invoked and ctx.Err() is returned.
func Use[T, U any](ctx context.Context, l *Limited[T], op func(T) (U, error)) (U, error) {
	var zero U

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if !l.last.IsZero() {
		if wait := l.interval - l.now().Sub(l.last); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return zero, err
			}
		}
	}
	l.last = l.now()
	return op(l.resource)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
