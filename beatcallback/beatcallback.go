// Package beatcallback defines the data the Controller's musical-time
// re-entry engine runs on: a callback bound to a beat timestamp, a
// cancellation handle safe to call from any goroutine, and the
// StartBeat union resolving where a newly scheduled callback first
// fires.
package beatcallback

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
)

// Issuer is the capability a callback body needs to issue new commands
// from inside a beat re-entry: a fresh Commands handle. It is declared
// here, rather than importing the commands package's concrete type
// directly, to keep this package a descendant of graph/change/ktime in
// the dependency order; *commands.Commands satisfies it structurally.
type Issuer interface {
	Push(thing graph.Pushable) knystid.NodeId
	PushToGraph(thing graph.Pushable, target knystid.GraphId) knystid.NodeId
	Connect(conn change.Connection) error
	Disconnect(conn change.Connection) error
	ScheduleChange(c change.ParameterChange) error
	ScheduleChanges(c change.SimultaneousChanges) error
	FreeNode(id knystid.NodeId) error
}

// Func is a callback body. It receives the beat timestamp it was
// invoked at and an Issuer scoped to that invocation, and reports
// either the beat delta to its next invocation or that it is done.
type Func func(timestamp ktime.Superbeats, issue Issuer) Result

// Result is what a Func returns: either Finished, or Delta beats until
// the next invocation (relative to the timestamp just processed, not
// to wall time, so a callback that falls behind does not accumulate
// drift beyond the engine's look-ahead window).
type Result struct {
	Delta    ktime.Superbeats
	Finished bool
}

// Again returns a Result asking to be invoked again after delta beats.
func Again(delta ktime.Superbeats) Result { return Result{Delta: delta} }

// Done returns a Result that removes the callback.
func Done() Result { return Result{Finished: true} }

// StartKind discriminates StartBeat.
type StartKind int

const (
	// StartAbsolute schedules the first invocation at an exact beat.
	StartAbsolute StartKind = iota
	// StartMultiple schedules the first invocation at the next beat
	// that is an integer multiple of Value, at or after the time the
	// callback is registered (e.g. Multiple(4) fires on the next
	// downbeat of a 4-beat bar).
	StartMultiple
)

// StartBeat says when a freshly registered callback should first fire.
type StartBeat struct {
	Kind  StartKind
	Value ktime.Superbeats
}

// Absolute schedules the first invocation at exactly b.
func Absolute(b ktime.Superbeats) StartBeat { return StartBeat{Kind: StartAbsolute, Value: b} }

// Multiple schedules the first invocation at the next multiple of m.
func Multiple(m ktime.Superbeats) StartBeat { return StartBeat{Kind: StartMultiple, Value: m} }

// Callback is a registered beat callback, owned by the Controller's
// run_callbacks loop once scheduled. Its free flag is shared with the
// Handle returned to the caller, so cancellation from any goroutine is
// a single atomic store the engine observes on its next tick.
type Callback struct {
	ID            uuid.UUID
	NextTimestamp ktime.Superbeats
	Fn            Func
	free          atomic.Bool
}

// NewCallback builds a Callback not yet bound to a timestamp (the
// Controller resolves StartBeat to an absolute NextTimestamp once it
// knows the graph's current musical time) and the Handle that shares
// its cancellation flag. ID is a fresh random identifier, used only for
// log correlation (knystlog.FieldCallbackID) — it plays no role in
// scheduling or equality.
func NewCallback(fn Func) (*Callback, Handle) {
	cb := &Callback{ID: uuid.New(), Fn: fn}
	return cb, Handle{cb: cb}
}

// IsFree reports whether the callback has been cancelled.
func (c *Callback) IsFree() bool { return c.free.Load() }

// Handle lets the owner of a scheduled callback cancel it later, from
// any goroutine, without synchronizing with the Controller.
type Handle struct{ cb *Callback }

// Free cancels the callback. It is safe to call more than once and
// from any goroutine; the Controller removes the callback on its next
// run_callbacks pass.
func (h Handle) Free() {
	if h.cb != nil {
		h.cb.free.Store(true)
	}
}
