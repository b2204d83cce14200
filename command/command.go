// Package command is the closed vocabulary of messages the Commands
// facade sends across the command channel to the Controller. Every
// variant implements Command via an unexported marker method, the same
// closed-sum-type idiom the rest of the command bus uses for Time and
// Pushable: callers outside this package can hold and pass a Command,
// but cannot fabricate a new variant, so the Controller's dispatch
// switch is exhaustive by construction.
package command

import (
	"github.com/google/uuid"

	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
	"github.com/Tuurlijk/knyst/resources"
)

// Command is the closed set of messages the Controller dispatches.
type Command interface {
	isCommand()
}

// Push inserts a node or subgraph into a graph at startTime. NodeID is
// pre-allocated by the sender so it is available to the caller before
// this command is even enqueued.
type Push struct {
	Thing     graph.Pushable
	NodeID    knystid.NodeId
	GraphID   knystid.GraphId
	StartTime ktime.Time
}

func (Push) isCommand() {}

// Connect applies conn.
type Connect struct{ Connection change.Connection }

func (Connect) isCommand() {}

// Disconnect removes conn.
type Disconnect struct{ Connection change.Connection }

func (Disconnect) isCommand() {}

// FreeNode removes a node, leaving any edges through it dangling.
type FreeNode struct{ Node knystid.NodeId }

func (FreeNode) isCommand() {}

// FreeNodeMendConnections removes a node and reconnects its former
// sources directly to its former sinks, channel for channel.
type FreeNodeMendConnections struct{ Node knystid.NodeId }

func (FreeNodeMendConnections) isCommand() {}

// FreeDisconnectedNodes removes every node in GraphID with no
// connections at all.
type FreeDisconnectedNodes struct{ GraphID knystid.GraphId }

func (FreeDisconnectedNodes) isCommand() {}

// ScheduleChange applies a single parameter write.
type ScheduleChange struct{ Change change.ParameterChange }

func (ScheduleChange) isCommand() {}

// ScheduleChanges applies a time-stamped batch of parameter writes.
type ScheduleChanges struct{ Changes change.SimultaneousChanges }

func (ScheduleChanges) isCommand() {}

// Resources forwards a buffer/wavetable management op to the audio
// thread's resources ring.
type Resources struct{ Op resources.Command }

func (Resources) isCommand() {}

// ChangeMusicalTimeMap runs Mutate against GraphID's musical time map
// under the Controller's exclusive ownership.
type ChangeMusicalTimeMap struct {
	GraphID knystid.GraphId
	Mutate  func(*graph.MusicalTimeMap)
}

func (ChangeMusicalTimeMap) isCommand() {}

// ScheduleBeatCallback registers Callback with the Controller's
// run_callbacks engine, resolving Start to an absolute timestamp once
// dispatched.
type ScheduleBeatCallback struct {
	GraphID  knystid.GraphId
	Callback *beatcallback.Callback
	Start    beatcallback.StartBeat
}

func (ScheduleBeatCallback) isCommand() {}

// RequestInspection asks the Controller to generate a structural
// snapshot of GraphID and deliver it on Reply. The Controller never
// blocks sending on Reply; a reply the caller isn't waiting for is
// silently dropped.
type RequestInspection struct {
	RequestID uuid.UUID
	GraphID   knystid.GraphId
	Reply     chan<- graph.Inspection
}

func (RequestInspection) isCommand() {}
