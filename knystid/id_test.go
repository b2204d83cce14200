package knystid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeIdMonotonicAndUnique(t *testing.T) {
	seen := make(map[uint64]bool)
	var prev NodeId
	for i := 0; i < 100; i++ {
		id := NewNodeId()
		require.False(t, seen[id.ID()])
		seen[id.ID()] = true
		if i > 0 {
			assert.Greater(t, id.ID(), prev.ID())
		}
		prev = id
	}
}

func TestNewNodeIdForGraphCarriesHint(t *testing.T) {
	g := NewGraphId()
	id := NewNodeIdForGraph(g)

	hint, ok := id.GraphHint()
	require.True(t, ok)
	assert.Equal(t, g, hint)

	plain := NewNodeId()
	_, ok = plain.GraphHint()
	assert.False(t, ok)
}

func TestNodeIdEqual(t *testing.T) {
	a := NewNodeId()
	b := NewNodeIdForGraph(NewGraphId())
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}

func TestConcurrentAllocationIsUnique(t *testing.T) {
	const n = 500
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewNodeId().ID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate id allocated under concurrency")
		seen[id] = true
	}
}

func TestGraphIdString(t *testing.T) {
	g := NewGraphId()
	assert.Contains(t, g.String(), "graph#")
}
