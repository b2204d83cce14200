// Package commands is the client-facing facade: the handle every
// producer of audio-graph changes actually holds and calls. It never
// touches the Graph directly except when a thread-local local-graph
// scope is open; otherwise every call becomes a Command handed to a
// Sender (the Controller's inbound queue) and returns immediately.
//
// A *Commands value is a per-owner handle, not a shared singleton: the
// Controller mints one per caller via NewCommands/Clone, matching the
// real thing's "thread-local handle cloned from the Controller"
// phrasing translated into Go's goroutine model, where state scoped to
// "whichever goroutine is calling" is simplest expressed as state
// owned by whichever *Commands value that goroutine was handed, not by
// package-level thread-local storage.
package commands

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/knystlog"
	"github.com/Tuurlijk/knyst/ktime"
	"github.com/Tuurlijk/knyst/resources"
)

// Sender is the inbound side of the Controller's command queue. Send
// must never block; GraphFactory constructs a fresh Graph implementation
// for a local-graph scope, the same way the real audio backend supplies
// one to the top-level Controller.
type Sender interface {
	Send(cmd command.Command) error
}

// GraphFactory builds a Graph implementation for InitLocalGraph. The
// Controller supplies one matching whatever Graph type it was built
// with, so a local graph interops with the top-level graph.
type GraphFactory func(settings graph.Settings) graph.Graph

type localGraphFrame struct {
	graphID         knystid.GraphId
	graph           graph.Graph
	settings        graph.Settings
	priorTarget     knystid.GraphId
	priorBundleTime ktime.Time
}

// Commands is the client facade. Zero value is not usable; build one
// via a Controller's NewCommands or an existing handle's Clone.
type Commands struct {
	sender       Sender
	graphFactory GraphFactory
	logger       *zap.SugaredLogger

	topLevelGraphID knystid.GraphId

	selectedGraphID knystid.GraphId
	localGraphs     []localGraphFrame

	bundleOpen    bool
	bundleTime    ktime.Time
	bundleChanges []change.NodeChanges
}

// New builds a Commands handle bound to sender, targeting topLevelGraphID
// by default. Controller.NewCommands is the usual way to obtain one;
// this constructor is exported for tests and for alternative Senders
// (e.g. a recording fake).
func New(sender Sender, graphFactory GraphFactory, topLevelGraphID knystid.GraphId) *Commands {
	return &Commands{
		sender:          sender,
		graphFactory:    graphFactory,
		logger:          knystlog.ComponentLogger("commands"),
		topLevelGraphID: topLevelGraphID,
		selectedGraphID: topLevelGraphID,
		bundleTime:      ktime.Immediately(),
	}
}

// Clone returns a fresh handle sharing this one's Sender and
// GraphFactory but with its own independent scope state: own selected
// graph, own empty local-graph stack, own closed bundle. This is what
// "thread-local, cloned from the Controller" becomes for a language
// without implicit thread-local storage — each goroutine that wants
// its own scope gets its own clone.
func (c *Commands) Clone() *Commands {
	return &Commands{
		sender:          c.sender,
		graphFactory:    c.graphFactory,
		logger:          c.logger,
		topLevelGraphID: c.topLevelGraphID,
		selectedGraphID: c.topLevelGraphID,
		bundleTime:      ktime.Immediately(),
	}
}

func (c *Commands) send(cmd command.Command) error {
	return c.sender.Send(cmd)
}

func (c *Commands) topLocalGraph() (localGraphFrame, bool) {
	if len(c.localGraphs) == 0 {
		return localGraphFrame{}, false
	}
	return c.localGraphs[len(c.localGraphs)-1], true
}

// ToGraph selects target as the destination for subsequent calls that
// do not name a graph explicitly. Pure client-side state; no command
// is sent.
func (c *Commands) ToGraph(target knystid.GraphId) { c.selectedGraphID = target }

// ToTopLevelGraph resets the selected graph back to the top-level one.
func (c *Commands) ToTopLevelGraph() { c.selectedGraphID = c.topLevelGraphID }

// Push inserts thing into the currently selected graph and returns its
// NodeId immediately; the insertion itself may still be in flight.
func (c *Commands) Push(thing graph.Pushable) knystid.NodeId {
	return c.pushTo(thing, c.selectedGraphID)
}

// PushToGraph inserts thing into target and returns its NodeId
// immediately.
func (c *Commands) PushToGraph(thing graph.Pushable, target knystid.GraphId) knystid.NodeId {
	return c.pushTo(thing, target)
}

// PushWithInputs pushes thing into target then wires each inputs entry
// to it, in order: each entry's Sink is replaced by the new node's
// input at that entry's Sink.Channel, since the caller cannot know the
// new NodeId beforehand. It still returns the NodeId immediately; the
// wiring commands queue behind the push and may resolve over one or
// more later Controller ticks the same way a manual Push+Connect would.
func (c *Commands) PushWithInputs(thing graph.Pushable, target knystid.GraphId, inputs []change.Connection) knystid.NodeId {
	id := c.pushTo(thing, target)
	for _, conn := range inputs {
		conn.Sink = change.NodeInput(id, conn.Sink.Channel)
		_ = c.Connect(conn)
	}
	return id
}

func (c *Commands) pushTo(thing graph.Pushable, target knystid.GraphId) knystid.NodeId {
	id := knystid.NewNodeIdForGraph(target)

	if top, ok := c.topLocalGraph(); ok && top.graphID == target {
		if err := top.graph.PushWithExistingAddressToGraphAtTime(thing, id, c.bundleTime); err != nil {
			c.logger.Warnw("local graph push failed",
				knystlog.FieldNodeID, id.String(),
				knystlog.FieldGraphID, target.String(),
				knystlog.FieldError, err.Error())
		}
		return id
	}

	if err := c.send(command.Push{Thing: thing, NodeID: id, GraphID: target, StartTime: c.bundleTime}); err != nil {
		c.logger.Warnw("push command dropped", knystlog.FieldNodeID, id.String(), knystlog.FieldError, err.Error())
	}
	return id
}

func endpointNode(ep change.Endpoint) (knystid.NodeId, bool) {
	switch ep.Kind {
	case change.EndpointNodeInput, change.EndpointNodeOutput:
		return ep.Node, true
	default:
		return knystid.NodeId{}, false
	}
}

// endpointBelongsTo reports whether ep resolves inside the graph gid:
// a graph-boundary endpoint always does (it has no node identity of
// its own, and is only ever valid relative to whatever graph is
// executing the connect), a node endpoint does if its graph hint
// matches.
func endpointBelongsTo(ep change.Endpoint, gid knystid.GraphId) bool {
	node, isNode := endpointNode(ep)
	if !isNode {
		return true
	}
	hint, ok := node.GraphHint()
	return ok && hint == gid
}

// Connect wires conn. If a local-graph scope is open and both
// endpoints resolve inside it, the edge is applied synchronously and
// any error returns immediately; otherwise the connect is sent to the
// Controller, which may defer it if the source or sink hasn't been
// applied yet.
func (c *Commands) Connect(conn change.Connection) error {
	if top, ok := c.topLocalGraph(); ok && endpointBelongsTo(conn.Source, top.graphID) && endpointBelongsTo(conn.Sink, top.graphID) {
		return top.graph.Connect(conn)
	}
	return c.send(command.Connect{Connection: conn})
}

// Disconnect removes conn, with the same local-vs-remote resolution as
// Connect.
func (c *Commands) Disconnect(conn change.Connection) error {
	if top, ok := c.topLocalGraph(); ok && endpointBelongsTo(conn.Source, top.graphID) && endpointBelongsTo(conn.Sink, top.graphID) {
		return top.graph.Disconnect(conn)
	}
	return c.send(command.Disconnect{Connection: conn})
}

// FreeNode removes id, leaving dangling edges through it. Always sent
// to the Controller: freeing can race a node's own creation, and the
// Controller's deferred-retry policy is the single place that race is
// resolved.
func (c *Commands) FreeNode(id knystid.NodeId) error {
	return c.send(command.FreeNode{Node: id})
}

// FreeNodeMendConnections removes id and reconnects its former sources
// to its former sinks.
func (c *Commands) FreeNodeMendConnections(id knystid.NodeId) error {
	return c.send(command.FreeNodeMendConnections{Node: id})
}

// FreeDisconnectedNodes removes every disconnected node from target.
func (c *Commands) FreeDisconnectedNodes(target knystid.GraphId) error {
	return c.send(command.FreeDisconnectedNodes{GraphID: target})
}

// ScheduleChange schedules a single parameter write. Inside an open
// bundle it accumulates into the bundle instead of being sent
// immediately; see StartSchedulingBundle.
func (c *Commands) ScheduleChange(pc change.ParameterChange) error {
	if c.bundleOpen {
		c.bundleChanges = append(c.bundleChanges, change.NodeChanges{
			Node:       pc.Input.Node,
			Parameters: []change.ChannelValue{{Channel: pc.Input.Channel, Value: pc.Value}},
		})
		return nil
	}
	if top, ok := c.topLocalGraph(); ok && endpointBelongsTo(change.NodeInput(pc.Input.Node, pc.Input.Channel), top.graphID) {
		return top.graph.ScheduleChange(pc)
	}
	return c.send(command.ScheduleChange{Change: pc})
}

// ScheduleChanges schedules a time-stamped batch. Inside an open
// bundle, its changes accumulate into the bundle and its own Time is
// ignored in favor of the bundle's.
func (c *Commands) ScheduleChanges(sc change.SimultaneousChanges) error {
	if c.bundleOpen {
		c.bundleChanges = append(c.bundleChanges, sc.Changes...)
		return nil
	}
	if top, ok := c.topLocalGraph(); ok && allChangesBelongTo(sc, top.graphID) {
		return top.graph.ScheduleChanges(sc)
	}
	return c.send(command.ScheduleChanges{Changes: sc})
}

func allChangesBelongTo(sc change.SimultaneousChanges, gid knystid.GraphId) bool {
	for _, nc := range sc.Changes {
		hint, ok := nc.Node.GraphHint()
		if !ok || hint != gid {
			return false
		}
	}
	return true
}

// InsertBuffer forwards a buffer insertion to the audio thread's
// resources ring.
func (c *Commands) InsertBuffer(buf resources.Buffer) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.InsertBuffer, BufferID: buf.ID, Buffer: &buf}})
}

// RemoveBuffer forwards a buffer removal.
func (c *Commands) RemoveBuffer(id uint64) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.RemoveBuffer, BufferID: id}})
}

// ReplaceBuffer forwards a buffer replacement.
func (c *Commands) ReplaceBuffer(buf resources.Buffer) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.ReplaceBuffer, BufferID: buf.ID, Buffer: &buf}})
}

// InsertWavetable forwards a wavetable insertion.
func (c *Commands) InsertWavetable(wt resources.Wavetable) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.InsertWavetable, TableID: wt.ID, Wavetable: &wt}})
}

// RemoveWavetable forwards a wavetable removal.
func (c *Commands) RemoveWavetable(id uint64) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.RemoveWavetable, TableID: id}})
}

// ReplaceWavetable forwards a wavetable replacement.
func (c *Commands) ReplaceWavetable(wt resources.Wavetable) error {
	return c.send(command.Resources{Op: resources.Command{Kind: resources.ReplaceWavetable, TableID: wt.ID, Wavetable: &wt}})
}

// ChangeMusicalTimeMap runs mutate against target's musical time map
// under the Controller's exclusive ownership.
func (c *Commands) ChangeMusicalTimeMap(target knystid.GraphId, mutate func(*graph.MusicalTimeMap)) error {
	return c.send(command.ChangeMusicalTimeMap{GraphID: target, Mutate: mutate})
}

// ScheduleBeatCallback registers fn with the Controller's beat-callback
// engine, first invoked per start, and returns a Handle the caller can
// use to cancel it from any goroutine.
func (c *Commands) ScheduleBeatCallback(target knystid.GraphId, fn beatcallback.Func, start beatcallback.StartBeat) beatcallback.Handle {
	cb, handle := beatcallback.NewCallback(fn)
	if err := c.send(command.ScheduleBeatCallback{GraphID: target, Callback: cb, Start: start}); err != nil {
		c.logger.Warnw("schedule_beat_callback dropped", knystlog.FieldError, err.Error())
	}
	return handle
}

// RequestInspection asks the Controller for a structural snapshot of
// target and returns a channel the snapshot arrives on. The channel
// has capacity 1; a caller that never reads it simply never unblocks
// the Controller's non-blocking delivery attempt, which is fine — the
// attempt never blocks the Controller either.
func (c *Commands) RequestInspection(target knystid.GraphId) (<-chan graph.Inspection, error) {
	reply := make(chan graph.Inspection, 1)
	req := command.RequestInspection{RequestID: uuid.New(), GraphID: target, Reply: reply}
	if err := c.send(req); err != nil {
		return nil, err
	}
	return reply, nil
}
