package controller

import (
	"sync"

	"github.com/Tuurlijk/knyst/command"
)

// commandQueue is the unbounded inbound queue every Commands handle
// sends into: Send must never block the calling goroutine, including
// the goroutine calling Run when a beat callback issues commands from
// inside it. A plain
// buffered channel can't give that guarantee once full, so this pairs
// a mutex-guarded growable slice with a single-slot wakeup channel —
// the same tradeoff the rest of this codebase makes elsewhere for a
// queue that is drained by one dedicated goroutine and must not block
// its producers: a short critical section instead of a literal
// lock-free structure.
type commandQueue struct {
	mu    sync.Mutex
	items []command.Command
	wake  chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{wake: make(chan struct{}, 1)}
}

// Send appends cmd and never blocks.
func (q *commandQueue) Send(cmd command.Command) error {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// drainUpTo removes and returns at most max queued commands (all of
// them, if max <= 0), reporting whether the queue is now empty.
func (q *commandQueue) drainUpTo(max int) ([]command.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	exhausted := true
	if max > 0 && n > max {
		n = max
		exhausted = false
	}
	out := make([]command.Command, n)
	copy(out, q.items[:n])

	rest := q.items[n:]
	if len(rest) == 0 {
		q.items = nil
	} else if cap(rest) > 2*len(rest) {
		// The backing array has drifted far larger than what's left in
		// it (a burst followed by a quiet period); reallocate instead
		// of holding onto it indefinitely.
		q.items = append([]command.Command(nil), rest...)
	} else {
		q.items = rest
	}
	return out, exhausted
}

// wakeChan signals (best-effort, coalesced) when a Send has happened.
// Run doesn't have to use it — polling each tick is equally correct —
// but a long-lived loop can select on it to avoid busy-waiting between
// ticks.
func (q *commandQueue) wakeChan() <-chan struct{} { return q.wake }
