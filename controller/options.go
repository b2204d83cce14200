package controller

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/Tuurlijk/knyst/ktime"
	"github.com/Tuurlijk/knyst/resources"
)

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithMaxCommandsPerTick bounds how many queued commands a single Run
// call applies.
func WithMaxCommandsPerTick(n int) Option {
	return func(c *Controller) { c.maxCommandsPerTick = n }
}

// WithMaxDeferredAge bounds how long a transiently-failing command may
// be retried before it is evicted and reported as a permanent miss.
func WithMaxDeferredAge(d time.Duration) Option {
	return func(c *Controller) { c.maxDeferredAge = d }
}

// WithLookAhead sets how far ahead of the current musical time
// run_callbacks will fire a callback early.
func WithLookAhead(beats ktime.Superbeats) Option {
	return func(c *Controller) { c.lookAhead = beats }
}

// WithClock overrides the Controller's notion of now, for deterministic
// deferred-eviction tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithErrorRateLimit overrides the rate limit applied to error-handler
// reports (the Controller logs every error regardless; this only
// throttles how often failures reach the caller's error handler, with
// one limiter shared by errors of every kind).
func WithErrorRateLimit(r rate.Limit, burst int) Option {
	return func(c *Controller) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithResourcesRingCapacity overrides the default capacity of the
// bounded ring between the Controller and the audio-thread stand-in.
func WithResourcesRingCapacity(capacity int) Option {
	return func(c *Controller) {
		c.resourcesRing = resources.NewRing(capacity)
	}
}
