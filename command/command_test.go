package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
)

// TestVariantsImplementCommand is a compile-time-flavored check that
// every variant satisfies the closed interface; a new variant added
// without the marker method would fail here instead of at a dispatch
// call site deep in the Controller.
func TestVariantsImplementCommand(t *testing.T) {
	var cmds []Command = []Command{
		Push{},
		Connect{},
		Disconnect{},
		FreeNode{},
		FreeNodeMendConnections{},
		FreeDisconnectedNodes{},
		ScheduleChange{},
		ScheduleChanges{},
		Resources{},
		ChangeMusicalTimeMap{},
		ScheduleBeatCallback{},
		RequestInspection{},
	}
	assert.Len(t, cmds, 12)
}

func TestPushCarriesPreallocatedNodeID(t *testing.T) {
	g := knystid.NewGraphId()
	id := knystid.NewNodeIdForGraph(g)
	cmd := Push{NodeID: id, GraphID: g, StartTime: ktime.Immediately()}
	assert.Equal(t, id, cmd.NodeID)
	assert.True(t, cmd.StartTime.IsImmediately())
}

func TestScheduleChangeWrapsParameterChange(t *testing.T) {
	n := knystid.NewNodeId()
	pc := change.ParameterChange{Input: change.InputRef{Node: n, Channel: 0}, Value: 1}
	cmd := ScheduleChange{Change: pc}
	assert.Equal(t, 1.0, cmd.Change.Value)
}
