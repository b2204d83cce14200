package testgraph

import "github.com/Tuurlijk/knyst/graph"

// OnceTrig is a zero-input generator that outputs 1.0 on the very
// first sample it is processed for, and 0.0 forever after — a minimal
// stand-in for a trigger-style generator, used to make "did this node
// start producing output at the right sample" observable in tests.
type OnceTrig struct {
	fired bool
}

func (g *OnceTrig) NumInputs() int          { return 0 }
func (g *OnceTrig) NumOutputs() int         { return 1 }
func (g *OnceTrig) Init(graph.Settings)     {}
func (g *OnceTrig) Process(_ [][]float64, outputs [][]float64) {
	if g.fired {
		outputs[0][0] = 0
		return
	}
	g.fired = true
	outputs[0][0] = 1
}

// PassthroughPlusOne is a one-input, one-output generator that outputs
// its input's current constant value plus one — enough to make a
// scheduled parameter change observable in a block's output.
type PassthroughPlusOne struct{}

func (PassthroughPlusOne) NumInputs() int      { return 1 }
func (PassthroughPlusOne) NumOutputs() int     { return 1 }
func (PassthroughPlusOne) Init(graph.Settings) {}
func (PassthroughPlusOne) Process(inputs [][]float64, outputs [][]float64) {
	outputs[0][0] = inputs[0][0] + 1
}

// Silence is a zero-input generator that always outputs 0, useful as a
// placeholder node in connection/lifecycle tests that don't care about
// its audio output.
type Silence struct{}

func (Silence) NumInputs() int                             { return 0 }
func (Silence) NumOutputs() int                             { return 1 }
func (Silence) Init(graph.Settings)                         {}
func (Silence) Process(_ [][]float64, outputs [][]float64) { outputs[0][0] = 0 }
