package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/knystid"
)

func sendFiller(t *testing.T, q *commandQueue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := knystid.NewNodeIdForGraph(knystid.NewGraphId())
		conn := change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}
		require.NoError(t, q.Send(command.Connect{Connection: conn}))
	}
}

func TestDrainUpToReturnsAllWhenUnderMax(t *testing.T) {
	q := newCommandQueue()
	sendFiller(t, q, 3)

	out, exhausted := q.drainUpTo(10)
	assert.Len(t, out, 3)
	assert.True(t, exhausted)
}

func TestDrainUpToLeavesRemainderWhenOverMax(t *testing.T) {
	q := newCommandQueue()
	sendFiller(t, q, 5)

	out, exhausted := q.drainUpTo(2)
	assert.Len(t, out, 2)
	assert.False(t, exhausted)

	out, exhausted = q.drainUpTo(10)
	assert.Len(t, out, 3)
	assert.True(t, exhausted)
}

func TestDrainUpToReleasesOversizedBackingArray(t *testing.T) {
	q := newCommandQueue()
	sendFiller(t, q, 5000)

	out, exhausted := q.drainUpTo(4990)
	require.Len(t, out, 4990)
	assert.False(t, exhausted)
	require.Len(t, q.items, 10)
	assert.LessOrEqual(t, cap(q.items), 20,
		"after draining almost everything, the leftover 10 items should not still be backed by a ~5000-element array")

	out, exhausted = q.drainUpTo(100)
	assert.Len(t, out, 10)
	assert.True(t, exhausted)
	assert.Nil(t, q.items)
}
