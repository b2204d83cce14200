package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingTryPushRespectsCapacity(t *testing.T) {
	r := NewRing(2)
	assert.True(t, r.TryPush(Command{Kind: InsertBuffer, BufferID: 1}))
	assert.True(t, r.TryPush(Command{Kind: InsertBuffer, BufferID: 2}))
	assert.False(t, r.TryPush(Command{Kind: InsertBuffer, BufferID: 3}), "ring should report backpressure once full")
}

func TestRingCommandsConsumedInOrder(t *testing.T) {
	r := NewRing(4)
	require.True(t, r.TryPush(Command{Kind: InsertBuffer, BufferID: 1}))
	require.True(t, r.TryPush(Command{Kind: InsertBuffer, BufferID: 2}))

	first := <-r.Commands()
	second := <-r.Commands()
	assert.Equal(t, uint64(1), first.BufferID)
	assert.Equal(t, uint64(2), second.BufferID)
}

func TestRingResponseRoundTrip(t *testing.T) {
	r := NewRing(1)
	require.True(t, r.PushResponse(Response{Kind: InsertBuffer, ID: 7}))
	assert.False(t, r.PushResponse(Response{Kind: InsertBuffer, ID: 8}), "response ring should also back-pressure")

	resp, ok := r.TryPopResponse()
	require.True(t, ok)
	assert.Equal(t, uint64(7), resp.ID)

	_, ok = r.TryPopResponse()
	assert.False(t, ok)
}

func TestOpKindString(t *testing.T) {
	kinds := []OpKind{InsertBuffer, RemoveBuffer, ReplaceBuffer, InsertWavetable, RemoveWavetable, ReplaceWavetable, OpKind(99)}
	for _, k := range kinds {
		assert.NotEmpty(t, k.String())
	}
}
