package main

import (
	"time"

	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/graph/testgraph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/sphere"
)

// runDemo starts a Sphere over a fresh testgraph.Graph, pushes one
// generator node, connects it to the graph output, and returns a
// snapshot once the Controller has applied both commands. DSP
// generators and a real audio backend are out of scope here;
// testgraph.OnceTrig exists specifically to exercise the command bus
// without either.
func runDemo() (graph.Inspection, error) {
	settings := graph.Settings{SampleRate: 44100, BlockSize: 64, NumOutputs: 1}
	g := testgraph.New(knystid.NewGraphId(), settings)

	opts := []sphere.Option{sphere.WithTickInterval(time.Millisecond)}
	if configPath != "" {
		opts = append(opts, sphere.WithConfigFile(configPath))
	}

	s := sphere.Start(g, testgraph.Factory, opts...)
	defer s.Stop()

	cmds := s.Commands
	id := cmds.Push(graph.GeneratorNode{Generator: &testgraph.OnceTrig{}})

	conn := change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}

	var connectErr error
	for attempt := 0; attempt < 50; attempt++ {
		time.Sleep(2 * time.Millisecond)
		connectErr = cmds.Connect(conn)
		if connectErr == nil {
			break
		}
	}
	if connectErr != nil {
		return graph.Inspection{}, connectErr
	}

	time.Sleep(10 * time.Millisecond)
	return g.GenerateInspection(), nil
}
