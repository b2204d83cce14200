package testgraph

import "github.com/Tuurlijk/knyst/change"

// Process renders n frames starting at the graph's current sample
// cursor, applying any committed scheduled changes exactly on the
// sample they were scheduled for, and advances the cursor by n.
//
// Audio-rate node-to-node wiring is out of scope for this reference
// graph: only constant-value parameter changes feed a node's inputs,
// and only connections from a node's output to one of the graph's own
// output channels contribute to Process's return value. A SubGraph
// node contributes silence; verifying that pushing a subgraph wires
// its node correctly is done through GenerateInspection, not through
// its audio output.
func (g *Graph) Process(n int) [][]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([][]float64, g.settings.NumOutputs)
	for ch := range out {
		out[ch] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		sample := g.currentSample + int64(i)
		g.applyChangesAtLocked(sample)

		for _, key := range g.order {
			node := g.nodes[key]
			if node.freed || node.generator == nil || sample < node.activeFrom {
				continue
			}

			inputs := make([][]float64, len(node.inputValues))
			for ch, v := range node.inputValues {
				inputs[ch] = []float64{v}
			}
			outputs := make([][]float64, node.generator.NumOutputs())
			for ch := range outputs {
				outputs[ch] = make([]float64, 1)
			}
			node.generator.Process(inputs, outputs)

			g.mixNodeOutputLocked(node, outputs, out, i)
		}
	}

	g.currentSample += int64(n)
	return out
}

func (g *Graph) applyChangesAtLocked(sample int64) {
	consumed := 0
	for _, sc := range g.scheduledChanges {
		if sc.sample > sample {
			break
		}
		if n, ok := g.nodes[sc.node.ID()]; ok && sc.channel < len(n.inputValues) {
			n.inputValues[sc.channel] = sc.value
		}
		consumed++
	}
	g.scheduledChanges = g.scheduledChanges[consumed:]
}

func (g *Graph) mixNodeOutputLocked(node *nodeEntry, outputs [][]float64, graphOut [][]float64, frame int) {
	for _, e := range g.edges {
		if !e.valid {
			continue
		}
		if e.conn.Source.Kind != change.EndpointNodeOutput || !e.conn.Source.Node.Equal(node.id) {
			continue
		}
		if e.conn.Sink.Kind != change.EndpointGraphOutput {
			continue
		}
		for ch := 0; ch < e.conn.Channels; ch++ {
			srcCh := e.conn.Source.Channel + ch
			dstCh := e.conn.Sink.Channel + ch
			if srcCh >= len(outputs) || dstCh >= len(graphOut) {
				continue
			}
			graphOut[dstCh][frame] += outputs[srcCh][0]
		}
	}
}
