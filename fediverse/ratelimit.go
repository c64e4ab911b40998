package fediverse

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// windowMS is the fixed rate-limit window per instance.
	windowMS = 60_000
	// maxWindowWait caps a single rate-limit suspension; callers may
	// call Acquire again.
	maxWindowWait = 5 * time.Second
	// maxBackoffWait caps a single backoff suspension.
	maxBackoffWait = 30 * time.Second
	// baseBackoffMS is the penalty applied on the first failure.
	baseBackoffMS = 60_000
	// maxBackoffMS caps the backoff deadline at 5 minutes out.
	maxBackoffMS = 300_000
)

// Limiter applies per-instance rate limiting with exponential backoff.
// The rate-limit window models self-imposed politeness; backoff models
// server-signalled distress (429/5xx) and is deliberately decoupled from
// the window. State is one bucket per instance host; arbitrarily many
// pollers may call Acquire concurrently.
type Limiter struct {
	defaultPerMinute int32

	buckets sync.Map // instance key -> *bucket
	backoff sync.Map // instance key -> *atomic.Int64, unix ms deadline
}

// NewLimiter returns a Limiter admitting perMinute requests per instance
// per minute by default.
func NewLimiter(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		defaultPerMinute: int32(perMinute),
	}
}

// InstanceFromURL derives the per-instance key from any request URL:
// everything up to the first slash after scheme://host. Unparsable URLs
// share the "default" key.
func (l *Limiter) InstanceFromURL(url string) string {
	if url == "" {
		return "default"
	}
	schemeEnd := strings.Index(url, "://")
	if schemeEnd < 0 {
		return "default"
	}
	if pathStart := strings.Index(url[schemeEnd+3:], "/"); pathStart >= 0 {
		return url[:schemeEnd+3+pathStart]
	}
	return url
}

// SetLimit overrides the permits per minute for one instance.
func (l *Limiter) SetLimit(instanceURL string, perMinute int) {
	if perMinute < 1 {
		perMinute = 1
	}
	l.buckets.Store(l.InstanceFromURL(instanceURL), &bucket{permitsPerMinute: int32(perMinute)})
}

// Acquire suspends the caller until it is safe to issue a request to the
// instance serving requestURL. It returns early with the context's error
// if the context is cancelled while waiting; only the calling poll loop
// is ever suspended.
func (l *Limiter) Acquire(ctx context.Context, requestURL string) error {
	instance := l.InstanceFromURL(requestURL)
	now := time.Now().UnixMilli()

	if remaining := l.backoffRemaining(instance, now); remaining > 0 {
		wait := time.Duration(remaining) * time.Millisecond
		if wait > maxBackoffWait {
			wait = maxBackoffWait
		}
		log.Printf("fediverse: backoff for %s: waiting %v", instance, wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		now = time.Now().UnixMilli()
	}

	b, _ := l.buckets.LoadOrStore(instance, &bucket{permitsPerMinute: l.defaultPerMinute})
	if wait := b.(*bucket).wait(now); wait > 0 {
		if wait > maxWindowWait {
			wait = maxWindowWait
		}
		log.Printf("fediverse: rate limit for %s: waiting %v", instance, wait)
		return sleep(ctx, wait)
	}
	return nil
}

// RecordBackoff penalises the instance serving requestURL after a failed
// or 429 response. A penalty applied while one is still active doubles the
// remaining penalty, capped at 5 minutes.
func (l *Limiter) RecordBackoff(requestURL string) {
	instance := l.InstanceFromURL(requestURL)
	now := time.Now().UnixMilli()

	penalty := int64(baseBackoffMS)
	if remaining := l.backoffRemaining(instance, now); remaining > 0 {
		penalty = 2 * remaining
		if penalty > maxBackoffMS {
			penalty = maxBackoffMS
		}
	}
	deadline, _ := l.backoff.LoadOrStore(instance, new(atomic.Int64))
	deadline.(*atomic.Int64).Store(now + penalty)
	log.Printf("fediverse: backoff applied for %s: %dms", instance, penalty)
}

func (l *Limiter) backoffRemaining(instance string, nowMS int64) int64 {
	deadline, ok := l.backoff.Load(instance)
	if !ok {
		return 0
	}
	if remaining := deadline.(*atomic.Int64).Load() - nowMS; remaining > 0 {
		return remaining
	}
	return 0
}

// bucket is a fixed-window counter for one instance. The window start is
// advanced by compare-and-swap so a race on reset neither double-counts
// nor under-counts.
type bucket struct {
	permitsPerMinute int32
	windowStart      atomic.Int64 // unix ms
	count            atomic.Int32
}

// wait returns how long the caller must suspend before its request is
// within the window's capacity, or zero if it may proceed now.
func (b *bucket) wait(nowMS int64) time.Duration {
	start := b.windowStart.Load()
	if nowMS-start >= windowMS {
		if b.windowStart.CompareAndSwap(start, nowMS) {
			b.count.Store(0)
		}
	}
	if b.count.Add(1) <= b.permitsPerMinute {
		return 0
	}
	if remaining := b.windowStart.Load() + windowMS - nowMS; remaining > 0 {
		return time.Duration(remaining) * time.Millisecond
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
