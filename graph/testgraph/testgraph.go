// Package testgraph is a minimal, single-level reference Graph used by
// this module's own tests and by cmd/knystctl's demo run. It is not a
// DSP engine: it exists to exercise the Controller and Commands facade
// against something that actually schedules samples, without taking on
// the Non-goals (real generators, audio I/O, persistence) a production
// Graph would carry.
//
// Its scheduling model is deliberately simple: everything that affects
// sample output (a node activating, a parameter changing) is keyed to
// an absolute sample index and applied while stepping through Process
// one sample at a time. Connections take effect the instant Connect
// returns, since a Connection carries no Time of its own in the
// command-bus vocabulary — only the thing being scheduled (a Push, a
// ParameterChange) does.
package testgraph

import (
	"sort"
	"sync"

	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
)

type nodeEntry struct {
	id          knystid.NodeId
	generator   graph.Generator // nil for a SubGraph node
	subGraph    graph.Graph
	activeFrom  int64 // absolute sample index; node produces silence before this
	inputValues []float64
	freed       bool
}

type edge struct {
	conn  change.Connection
	valid bool
}

type scheduledPush struct {
	sample int64
	node   knystid.NodeId
	thing  graph.Pushable
}

type scheduledChange struct {
	sample  int64
	node    knystid.NodeId
	channel int
	value   float64
}

// Graph is the reference Graph implementation.
type Graph struct {
	mu       sync.Mutex
	id       knystid.GraphId
	settings graph.Settings

	nodes map[uint64]*nodeEntry
	order []uint64 // insertion order, used as a stand-in topological order
	edges []edge

	currentSample int64

	pendingPushes    []scheduledPush
	pendingChanges   []scheduledChange
	scheduledChanges []scheduledChange // committed, sorted by sample, consumed by Process
	committed        bool              // Update() has run since the last mutation

	timeMap *graph.MusicalTimeMap
}

// New builds an empty Graph with the given id and settings.
func New(id knystid.GraphId, settings graph.Settings) *Graph {
	return &Graph{
		id:       id,
		settings: settings,
		nodes:    make(map[uint64]*nodeEntry),
		timeMap:  graph.NewMusicalTimeMap(120),
	}
}

// Factory adapts New to the commands.GraphFactory / beat-callback local
// graph signature: a fresh graph gets a fresh id.
func Factory(settings graph.Settings) graph.Graph {
	return New(knystid.NewGraphId(), settings)
}

func (g *Graph) ID() knystid.GraphId      { return g.id }
func (g *Graph) Settings() graph.Settings { return g.settings }

func (g *Graph) toSample(t ktime.Time) int64 {
	switch t.Kind() {
	case ktime.KindImmediately:
		return g.currentSample
	case ktime.KindSeconds:
		whole, _, _ := t.AsSeconds()
		return whole
	case ktime.KindSuperseconds:
		s, _ := t.AsSuperseconds()
		return s.ToSamples(g.settings.SampleRate)
	case ktime.KindSuperbeats:
		b, _ := t.AsSuperbeats()
		secs := g.timeMap.BeatsToSeconds(b)
		return secs.ToSamples(g.settings.SampleRate)
	default:
		return g.currentSample
	}
}

// PushWithExistingAddressToGraphAtTime registers nodeID immediately
// (so a Connect naming it can succeed right away) and schedules it to
// start producing output at startTime.
func (g *Graph) PushWithExistingAddressToGraphAtTime(thing graph.Pushable, nodeID knystid.NodeId, startTime ktime.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry := &nodeEntry{id: nodeID}
	switch t := thing.(type) {
	case graph.GeneratorNode:
		entry.generator = t.Generator
		entry.generator.Init(g.settings)
		entry.inputValues = make([]float64, t.Generator.NumInputs())
	case graph.SubGraph:
		entry.subGraph = t.Graph
	default:
		return &graph.StructureError{Err: errUnknownPushable}
	}

	g.nodes[nodeID.ID()] = entry
	g.order = append(g.order, nodeID.ID())

	sample := g.toSample(startTime)
	g.pendingPushes = append(g.pendingPushes, scheduledPush{sample: sample, node: nodeID, thing: thing})
	g.committed = false
	return nil
}

var errUnknownPushable = graphErr("pushable is neither a GeneratorNode nor a SubGraph")

type graphErr string

func (e graphErr) Error() string { return string(e) }

func (g *Graph) findNode(id knystid.NodeId) (*nodeEntry, bool) {
	n, ok := g.nodes[id.ID()]
	if !ok || n.freed {
		return nil, false
	}
	return n, true
}

func referenceMiss(wasEverKnown bool) graph.ReferenceKind {
	if wasEverKnown {
		return graph.ReferenceGone
	}
	return graph.ReferenceNotYetPushed
}

// Connect wires conn, taking effect immediately once both endpoints
// resolve. Either endpoint may be a not-yet-pushed NodeId, reported as
// a transient reference miss the Controller can defer and retry.
func (g *Graph) Connect(conn change.Connection) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkEndpoint(conn.Source); err != nil {
		return err
	}
	if err := g.checkEndpoint(conn.Sink); err != nil {
		return err
	}
	g.edges = append(g.edges, edge{conn: conn, valid: true})
	return nil
}

func (g *Graph) checkEndpoint(ep change.Endpoint) *graph.ConnectionError {
	if ep.Kind == change.EndpointGraphInput || ep.Kind == change.EndpointGraphOutput {
		return nil
	}
	if _, ok := g.findNode(ep.Node); !ok {
		_, wasKnown := g.nodes[ep.Node.ID()]
		return &graph.ConnectionError{Kind: referenceMiss(wasKnown), Conn: ep.String(), Err: errNodeNotResolved}
	}
	return nil
}

var errNodeNotResolved = graphErr("node not resolved in this graph")

// Disconnect removes a matching edge, if one exists.
func (g *Graph) Disconnect(conn change.Connection) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.edges {
		e := g.edges[i]
		if e.valid && e.conn == conn {
			g.edges[i].valid = false
			return nil
		}
	}
	return &graph.ConnectionError{Kind: graph.ReferenceGone, Conn: conn.String(), Err: errEdgeNotFound}
}

var errEdgeNotFound = graphErr("no matching connection")

// FreeNode removes id, leaving any edges through it dangling (they
// simply never fire again, same as connecting to a node that no longer
// exists).
func (g *Graph) FreeNode(id knystid.NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.findNode(id)
	if !ok {
		_, wasKnown := g.nodes[id.ID()]
		return &graph.FreeError{Kind: referenceMiss(wasKnown), Err: errNodeNotResolved}
	}
	n.freed = true
	return nil
}

// FreeNodeMendConnections removes id and reconnects each of its
// sources directly to each of its sinks, one-to-one by order
// discovered, truncated to the shorter list.
func (g *Graph) FreeNodeMendConnections(id knystid.NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.findNode(id)
	if !ok {
		_, wasKnown := g.nodes[id.ID()]
		return &graph.FreeError{Kind: referenceMiss(wasKnown), Err: errNodeNotResolved}
	}
	n.freed = true

	var sources, sinks []change.Endpoint
	for i := range g.edges {
		e := &g.edges[i]
		if !e.valid {
			continue
		}
		if nodeEq(e.conn.Sink, id) {
			sources = append(sources, e.conn.Source)
			e.valid = false
		}
		if nodeEq(e.conn.Source, id) {
			sinks = append(sinks, e.conn.Sink)
			e.valid = false
		}
	}
	for i := 0; i < len(sources) && i < len(sinks); i++ {
		g.edges = append(g.edges, edge{conn: change.Connection{Source: sources[i], Sink: sinks[i], Channels: 1}, valid: true})
	}
	return nil
}

func nodeEq(ep change.Endpoint, id knystid.NodeId) bool {
	return (ep.Kind == change.EndpointNodeInput || ep.Kind == change.EndpointNodeOutput) && ep.Node.Equal(id)
}

// FreeDisconnectedNodes removes every live node with no edge touching
// it at all.
func (g *Graph) FreeDisconnectedNodes() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	connected := make(map[uint64]bool)
	for _, e := range g.edges {
		if !e.valid {
			continue
		}
		if id, ok := endpointNodeID(e.conn.Source); ok {
			connected[id] = true
		}
		if id, ok := endpointNodeID(e.conn.Sink); ok {
			connected[id] = true
		}
	}
	for _, n := range g.nodes {
		if !n.freed && !connected[n.id.ID()] {
			n.freed = true
		}
	}
	return nil
}

func endpointNodeID(ep change.Endpoint) (uint64, bool) {
	if ep.Kind == change.EndpointNodeInput || ep.Kind == change.EndpointNodeOutput {
		return ep.Node.ID(), true
	}
	return 0, false
}

// ScheduleChange schedules a constant-value write to one input channel.
func (g *Graph) ScheduleChange(c change.ParameterChange) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.findNode(c.Input.Node); !ok {
		_, wasKnown := g.nodes[c.Input.Node.ID()]
		return &graph.ScheduleError{Kind: referenceMiss(wasKnown), Err: errNodeNotResolved}
	}
	sample := g.toSample(c.Time)
	g.pendingChanges = append(g.pendingChanges, scheduledChange{sample: sample, node: c.Input.Node, channel: c.Input.Channel, value: c.Value})
	g.committed = false
	return nil
}

// ScheduleChanges schedules a batch, honoring each NodeChanges' Offset
// relative to the batch's own Time.
func (g *Graph) ScheduleChanges(sc change.SimultaneousChanges) error {
	g.mu.Lock()
	baseSample := g.toSample(sc.Time)
	g.mu.Unlock()

	for _, nc := range sc.Changes {
		sample := baseSample
		if nc.Offset != nil {
			g.mu.Lock()
			sample = baseSample + (g.toSample(*nc.Offset) - g.currentSample)
			g.mu.Unlock()
		}
		for _, p := range nc.Parameters {
			if err := g.ScheduleChange(change.ParameterChange{
				Input: change.InputRef{Node: nc.Node, Channel: p.Channel},
				Value: p.Value,
				Time:  sc.Time,
			}); err != nil {
				return err
			}
			g.mu.Lock()
			g.pendingChanges[len(g.pendingChanges)-1].sample = sample
			g.mu.Unlock()
		}
	}
	return nil
}

// ChangeMusicalTimeMap runs mutate against the graph's map under its
// own lock, so a concurrent CurrentMusicalTime never observes a
// half-updated curve.
func (g *Graph) ChangeMusicalTimeMap(mutate func(*graph.MusicalTimeMap)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	mutate(g.timeMap)
}

// CurrentMusicalTime reports the graph's position on its time map.
func (g *Graph) CurrentMusicalTime() (ktime.Superbeats, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	secs := ktime.SupersecondsFromSamples(g.currentSample, g.settings.SampleRate)
	return g.timeMap.SecondsToBeats(secs), true
}

// GenerateInspection snapshots the graph's current structure.
func (g *Graph) GenerateInspection() graph.Inspection {
	g.mu.Lock()
	defer g.mu.Unlock()

	insp := graph.Inspection{GraphID: g.id}
	for _, key := range g.order {
		n := g.nodes[key]
		if n.freed {
			continue
		}
		ni := graph.NodeInspection{ID: n.id, IsGraph: n.subGraph != nil}
		if n.generator != nil {
			ni.Inputs = n.generator.NumInputs()
			ni.Outputs = n.generator.NumOutputs()
		}
		insp.Nodes = append(insp.Nodes, ni)
	}
	for _, e := range g.edges {
		if e.valid {
			insp.Connections = append(insp.Connections, e.conn)
		}
	}
	return insp
}

// Update commits pending pushes and parameter changes onto the live
// schedule Process reads from.
func (g *Graph) Update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.pendingPushes {
		if n, ok := g.nodes[p.node.ID()]; ok {
			n.activeFrom = p.sample
		}
	}
	g.pendingPushes = nil

	g.scheduledChanges = append(g.scheduledChanges, g.pendingChanges...)
	sort.SliceStable(g.scheduledChanges, func(i, j int) bool { return g.scheduledChanges[i].sample < g.scheduledChanges[j].sample })
	g.pendingChanges = nil

	g.committed = true
}
