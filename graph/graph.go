// Package graph declares the Graph collaborator contract: the DAG
// executor that the Controller drives. The actual DSP generators,
// audio backend, and Resources storage that a real Graph implementation
// would wrap are out of scope here (see spec Non-goals); this package
// only fixes the interface the Controller and Commands facade program
// against, plus the small set of value types (Settings, errors,
// inspection, musical time map) that cross that boundary. graph/testgraph
// supplies a minimal in-memory implementation for tests.
package graph

import (
	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
)

// Settings describes a graph's fixed audio-thread shape.
type Settings struct {
	SampleRate uint32
	BlockSize  int
	NumInputs  int
	NumOutputs int
}

// Generator is a DSP node: a pure function of its current block's
// inputs to its current block's outputs, block-by-block. Real
// generators (oscillators, filters, samplers) are a Non-goal here.
type Generator interface {
	NumInputs() int
	NumOutputs() int
	Init(settings Settings)
	// Process fills outputs from inputs. Both are indexed
	// [channel][frame] and share the same frame count.
	Process(inputs [][]float64, outputs [][]float64)
}

// Pushable is the closed two-variant union of things that can be
// pushed as a node: a leaf Generator, or an entire SubGraph.
type Pushable interface {
	isPushable()
}

// GeneratorNode wraps a Generator as a Pushable.
type GeneratorNode struct{ Generator Generator }

func (GeneratorNode) isPushable() {}

// SubGraph wraps a nested Graph as a Pushable, the shape produced by
// Commands.UploadLocalGraph.
type SubGraph struct{ Graph Graph }

func (SubGraph) isPushable() {}

// NodeInspection summarizes one live node for GraphInspection.
type NodeInspection struct {
	ID      knystid.NodeId
	Inputs  int
	Outputs int
	IsGraph bool
}

// Inspection is a point-in-time snapshot of a graph's structure,
// returned by Commands.RequestInspection.
type Inspection struct {
	GraphID     knystid.GraphId
	Nodes       []NodeInspection
	Connections []change.Connection
}

// Graph is the DAG executor the Controller reconciles commands
// against. Implementations own the actual sample-accurate scheduling;
// this package only fixes the contract.
type Graph interface {
	ID() knystid.GraphId
	Settings() Settings

	// PushWithExistingAddressToGraphAtTime inserts thing as nodeID,
	// active from startTime. nodeID is pre-allocated by the caller so
	// it can be returned to the client before this call happens.
	PushWithExistingAddressToGraphAtTime(thing Pushable, nodeID knystid.NodeId, startTime ktime.Time) error

	Connect(conn change.Connection) error
	Disconnect(conn change.Connection) error

	FreeNode(id knystid.NodeId) error
	FreeNodeMendConnections(id knystid.NodeId) error
	FreeDisconnectedNodes() error

	ScheduleChange(c change.ParameterChange) error
	ScheduleChanges(c change.SimultaneousChanges) error

	ChangeMusicalTimeMap(mutate func(*MusicalTimeMap))
	// CurrentMusicalTime reports the graph's current position on its
	// musical time map, or ok=false if none has been set.
	CurrentMusicalTime() (ktime.Superbeats, bool)

	GenerateInspection() Inspection

	// Update commits any changes accumulated since the last Update onto
	// the audio thread's live schedule.
	Update()
}
