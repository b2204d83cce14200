package controller

import (
	"time"

	"github.com/Tuurlijk/knyst/command"
)

// deferredEntry is a command that failed with a transient reference
// miss or backpressure and is waiting for another tick to try again.
//
// This implementation retries every deferred entry on every tick
// (alongside newly received commands) rather than draining the backlog
// ahead of new receives. Under sustained load that interleaves fairly
// between old and new work instead of letting a deferred backlog
// starve new commands; the cost is that a deferred command can wait
// behind an unbounded number of retries of its neighbors within one
// tick, which enqueuedAt-based eviction bounds.
type deferredEntry struct {
	Command    command.Command
	EnqueuedAt time.Time
}

func (c *Controller) deferCommand(cmd command.Command) {
	c.deferred = append(c.deferred, deferredEntry{Command: cmd, EnqueuedAt: c.now()})
}

// retryDeferred reapplies every deferred command once. Entries still
// transient are kept (their original EnqueuedAt preserved, so they
// still age toward eviction); entries older than MaxDeferredAge are
// evicted and reported as a permanent miss instead of retried again.
func (c *Controller) retryDeferred() {
	if len(c.deferred) == 0 {
		return
	}

	pending := c.deferred
	c.deferred = nil

	for _, entry := range pending {
		age := c.now().Sub(entry.EnqueuedAt)
		if age > c.maxDeferredAge {
			c.reportEvictedDeferred(entry)
			continue
		}

		if err := c.applyCommand(entry.Command); err != nil {
			if c.isTransient(err) {
				c.deferred = append(c.deferred, entry)
				continue
			}
			c.reportCommandError(entry.Command, err)
		}
	}
}
