// Package change defines the data describing what is changing in a
// Graph and when: a single parameter change, a batch of changes on one
// node, a time-stamped batch across many nodes, and a connection edge.
// None of these types do anything on their own; the Graph collaborator
// interprets them, and the command package wraps them as Command
// variants.
package change

import (
	"fmt"

	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
)

// InputRef names one input channel of one node: the addressee of a
// constant-value parameter change.
type InputRef struct {
	Node    knystid.NodeId
	Channel int
}

func (r InputRef) String() string {
	return fmt.Sprintf("%s.in[%d]", r.Node, r.Channel)
}

// ParameterChange is a single scheduled write of a constant value to
// one node input.
type ParameterChange struct {
	Input InputRef
	Value float64
	Time  ktime.Time
}

// ChannelValue is one (channel, value) pair inside a NodeChanges batch.
type ChannelValue struct {
	Channel int
	Value   float64
}

// NodeChanges batches several channel writes to a single node, with an
// optional offset relative to the owning SimultaneousChanges' time.
type NodeChanges struct {
	Node       knystid.NodeId
	Parameters []ChannelValue
	Offset     *ktime.Time
}

// SimultaneousChanges is a time-stamped batch of NodeChanges, applied
// as a single scheduling event: everything in Changes shares Time
// unless overridden by its own Offset.
type SimultaneousChanges struct {
	Time    ktime.Time
	Changes []NodeChanges
}

// EndpointKind discriminates Endpoint: either a node's channel, or one
// of the owning graph's own input/output channels (a pass-through
// boundary that has no NodeId of its own).
type EndpointKind int

const (
	EndpointNodeOutput EndpointKind = iota
	EndpointNodeInput
	EndpointGraphInput
	EndpointGraphOutput
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointNodeOutput:
		return "node_output"
	case EndpointNodeInput:
		return "node_input"
	case EndpointGraphInput:
		return "graph_input"
	case EndpointGraphOutput:
		return "graph_output"
	default:
		return "unknown_endpoint"
	}
}

// Endpoint is one side of a Connection.
type Endpoint struct {
	Kind    EndpointKind
	Node    knystid.NodeId // valid when Kind is EndpointNodeOutput/EndpointNodeInput
	Channel int
}

// NodeOutput builds an Endpoint naming a node's output channel.
func NodeOutput(node knystid.NodeId, channel int) Endpoint {
	return Endpoint{Kind: EndpointNodeOutput, Node: node, Channel: channel}
}

// NodeInput builds an Endpoint naming a node's input channel.
func NodeInput(node knystid.NodeId, channel int) Endpoint {
	return Endpoint{Kind: EndpointNodeInput, Node: node, Channel: channel}
}

// GraphInput builds an Endpoint naming the owning graph's own input
// channel, for wiring a subgraph's boundary straight through.
func GraphInput(channel int) Endpoint {
	return Endpoint{Kind: EndpointGraphInput, Channel: channel}
}

// GraphOutput builds an Endpoint naming the owning graph's own output
// channel.
func GraphOutput(channel int) Endpoint {
	return Endpoint{Kind: EndpointGraphOutput, Channel: channel}
}

func (e Endpoint) String() string {
	switch e.Kind {
	case EndpointNodeOutput:
		return fmt.Sprintf("%s.out[%d]", e.Node, e.Channel)
	case EndpointNodeInput:
		return fmt.Sprintf("%s.in[%d]", e.Node, e.Channel)
	case EndpointGraphInput:
		return fmt.Sprintf("graph.in[%d]", e.Channel)
	case EndpointGraphOutput:
		return fmt.Sprintf("graph.out[%d]", e.Channel)
	default:
		return "invalid-endpoint"
	}
}

// Connection is a directed edge from Source to Sink spanning Channels
// consecutive channels starting at each endpoint's Channel.
type Connection struct {
	Source   Endpoint
	Sink     Endpoint
	Channels int
}

func (c Connection) String() string {
	return fmt.Sprintf("%s -> %s (%d ch)", c.Source, c.Sink, c.Channels)
}
