// Package knystid allocates the two identifier types that flow through
// every command: NodeId and GraphId. Allocation is wait-free (a single
// atomic increment) so the Commands facade can mint a NodeId on the
// caller's goroutine and hand it back before the Controller has ever
// seen the corresponding Push command.
package knystid

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

var (
	nodeCounter  uint64
	graphCounter uint64
)

// GraphId identifies a Graph. The top-level graph's id is allocated the
// same way as any other graph's, by whoever builds that Graph; the
// Controller takes it from Graph.ID at construction time.
type GraphId uint64

// NewGraphId allocates a fresh, process-unique GraphId.
func NewGraphId() GraphId {
	return GraphId(atomic.AddUint64(&graphCounter, 1))
}

func (g GraphId) String() string {
	return fmt.Sprintf("graph#%d", uint64(g))
}

// MarshalJSON renders a GraphId the same way String does, so inspection
// snapshots stay readable as JSON.
func (g GraphId) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// NodeId identifies a node. It may be minted before the node it names
// physically exists in any Graph: the Commands facade allocates one and
// returns it from Push immediately, while the Push command itself is
// still in flight to the Controller.
//
// A NodeId optionally carries a GraphId hint recording which graph it
// was pushed into, used by the Commands facade to decide whether a
// local-graph operation resolves locally or must cross the command
// channel.
type NodeId struct {
	id        uint64
	graphHint GraphId
	hasHint   bool
}

// NewNodeId allocates a NodeId with no graph hint.
func NewNodeId() NodeId {
	return NodeId{id: atomic.AddUint64(&nodeCounter, 1)}
}

// NewNodeIdForGraph allocates a NodeId hinting at the graph it is being
// pushed into.
func NewNodeIdForGraph(graphID GraphId) NodeId {
	return NodeId{id: atomic.AddUint64(&nodeCounter, 1), graphHint: graphID, hasHint: true}
}

// ID returns the raw numeric identity, useful as a map key or for
// logging; it carries no ordering guarantee beyond allocation order.
func (n NodeId) ID() uint64 { return n.id }

// GraphHint returns the graph this id was allocated for, if any.
func (n NodeId) GraphHint() (GraphId, bool) { return n.graphHint, n.hasHint }

func (n NodeId) String() string {
	if n.hasHint {
		return fmt.Sprintf("node#%d@%s", n.id, n.graphHint)
	}
	return fmt.Sprintf("node#%d", n.id)
}

// Equal reports whether two NodeIds name the same node. Graph hints are
// metadata, not part of identity.
func (n NodeId) Equal(other NodeId) bool { return n.id == other.id }

// MarshalJSON renders a NodeId the same way String does, so inspection
// snapshots stay readable as JSON.
func (n NodeId) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}
