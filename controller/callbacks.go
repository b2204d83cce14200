package controller

import (
	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/ktime"
)

// runCallbacks invokes every registered callback whose NextTimestamp is
// at or within the look-ahead window of the graph's current musical
// time, then either reschedules it (NextTimestamp += Delta) or removes
// it (Finished, or cancelled via its Handle since the last tick).
//
// If the graph hasn't established a musical time yet (no tempo set),
// this is a no-op: callbacks simply wait for the first tick that has
// one.
func (c *Controller) runCallbacks() {
	current, ok := c.topGraph.CurrentMusicalTime()
	if !ok {
		return
	}

	c.mu.Lock()
	callbacks := c.callbacks
	lookAhead := c.lookAhead
	c.mu.Unlock()

	var surviving []*beatcallback.Callback
	for _, cb := range callbacks {
		if cb.IsFree() {
			continue
		}
		if dueWithinLookAhead(cb.NextTimestamp, current, lookAhead) {
			issuer := c.NewCommands()
			result := cb.Fn(cb.NextTimestamp, issuer)
			if result.Finished {
				continue
			}
			cb.NextTimestamp = cb.NextTimestamp.Add(result.Delta)
		}
		surviving = append(surviving, cb)
	}

	c.mu.Lock()
	c.callbacks = surviving
	c.mu.Unlock()
}

func dueWithinLookAhead(next, current, lookAhead ktime.Superbeats) bool {
	if next.LessOrEqual(current) {
		return true
	}
	return next.Sub(current).LessOrEqual(lookAhead)
}
