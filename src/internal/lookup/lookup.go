// Package lookup composes bibliographic lookups: the raw service client,
// a process-wide throttle and an optional on-disk response cache.
package lookup

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"isbnscan/src/internal/ratelimit"
)

// Lookuper returns the raw bibliographic document for an ISBN.
type Lookuper interface {
	Lookup(ctx context.Context, isbn string) (string, error)
}

// TitleLookuper returns the raw bibliographic document for a title search.
type TitleLookuper interface {
	LookupTitle(ctx context.Context, title string) (string, error)
}

// ErrNoTitleLookup is returned by decorators whose inner Lookuper cannot
// search by title.
var ErrNoTitleLookup = errors.New("lookup: title search not supported")

// Func adapts a function to Lookuper.
type Func func(ctx context.Context, isbn string) (string, error)

func (f Func) Lookup(ctx context.Context, isbn string) (string, error) { return f(ctx, isbn) }

// Throttled funnels every ISBN and title lookup through one limiter.
type Throttled struct {
	limited *ratelimit.Limited[Lookuper]
}

// Throttle makes at most one lookup be in flight, with lookups starting at
// least interval apart. Cancelling ctx interrupts the wait for a turn; a
// lookup that has started runs to completion.
func Throttle(l Lookuper, interval time.Duration) *Throttled {
	return &Throttled{limited: ratelimit.New(l, interval)}
}

func (t *Throttled) Lookup(ctx context.Context, isbn string) (string, error) {
	return ratelimit.Use(ctx, t.limited, func(l Lookuper) (string, error) {
		return l.Lookup(context.WithoutCancel(ctx), isbn)
	})
}

func (t *Throttled) LookupTitle(ctx context.Context, title string) (string, error) {
	return ratelimit.Use(ctx, t.limited, func(l Lookuper) (string, error) {
		tl, ok := l.(TitleLookuper)
		if !ok {
			return "", ErrNoTitleLookup
		}
		return tl.LookupTitle(context.WithoutCancel(ctx), title)
	})
}

// Store is the persistence used by Cached.
type Store interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// CachedLookuper answers from a Store before calling through.
type CachedLookuper struct {
	next  Lookuper
	store Store
	log   *zap.Logger
}

// Cached consults store before calling next and records successful responses.
// Store failures are logged and bypassed. Titles are keyed apart from ISBNs.
func Cached(next Lookuper, store Store, log *zap.Logger) *CachedLookuper {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedLookuper{next: next, store: store, log: log}
}

func (c *CachedLookuper) Lookup(ctx context.Context, isbn string) (string, error) {
	return c.through(isbn, func() (string, error) { return c.next.Lookup(ctx, isbn) })
}

func (c *CachedLookuper) LookupTitle(ctx context.Context, title string) (string, error) {
	tl, ok := c.next.(TitleLookuper)
	if !ok {
		return "", ErrNoTitleLookup
	}
	return c.through("title:"+title, func() (string, error) { return tl.LookupTitle(ctx, title) })
}

func (c *CachedLookuper) through(key string, call func() (string, error)) (string, error) {
	body, ok, err := c.store.Get(key)
	switch {
	case err != nil:
		c.log.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		c.log.Debug("lookup cache hit", zap.String("key", key))
		return body, nil
	}

	body, err = call()
	if err != nil {
		return "", err
	}
	if err := c.store.Put(key, body); err != nil {
		c.log.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
	return body, nil
}
