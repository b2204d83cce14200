package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/graph/testgraph"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/ktime"
	"github.com/Tuurlijk/knyst/resources"
)

func newTestController(t *testing.T, opts ...Option) (*Controller, *testgraph.Graph) {
	t.Helper()
	settings := graph.Settings{SampleRate: 44100, BlockSize: 64, NumOutputs: 1}
	g := testgraph.New(knystid.NewGraphId(), settings)
	ctrl := New(g, testgraph.Factory, opts...)
	return ctrl, g
}

func TestPushThenConnectSameTickSucceeds(t *testing.T) {
	ctrl, g := newTestController(t)
	cmds := ctrl.NewCommands()

	id := cmds.Push(graph.GeneratorNode{Generator: &testgraph.OnceTrig{}})
	require.NoError(t, cmds.Connect(change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}))

	drained := ctrl.Run()
	assert.True(t, drained)

	out := g.Process(1)
	assert.Equal(t, 1.0, out[0][0])
}

// A Connect naming a node the Controller hasn't applied yet must
// still succeed, via a deferred retry on a later tick, without the
// caller doing anything differently.
func TestDeferredConnectAcrossSeparateTicks(t *testing.T) {
	ctrl, g := newTestController(t)

	id := knystid.NewNodeIdForGraph(g.ID())
	conn := change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}

	// Enqueue the connect before the matching push lands, simulating a
	// race between two independent Commands handles.
	require.NoError(t, ctrl.queue.Send(command.Connect{Connection: conn}))
	ctrl.Run() // Connect fails transiently here and is deferred.

	require.NotEmpty(t, ctrl.deferred, "connect should have been deferred")

	require.NoError(t, ctrl.queue.Send(command.Push{
		Thing:     graph.GeneratorNode{Generator: &testgraph.OnceTrig{}},
		NodeID:    id,
		GraphID:   g.ID(),
		StartTime: ktime.Immediately(),
	}))

	ctrl.Run() // push applies, then retryDeferred succeeds on the next tick.
	ctrl.Run()
	assert.Empty(t, ctrl.deferred)
}

// Freeing a scheduled callback's handle before its due time prevents
// it from ever firing.
func TestBeatCallbackCancellationBeforeDueTime(t *testing.T) {
	ctrl, g := newTestController(t)
	g.ChangeMusicalTimeMap(func(*graph.MusicalTimeMap) {}) // establish a time map (already set by New)
	cmds := ctrl.NewCommands()

	var fired bool
	handle := cmds.ScheduleBeatCallback(g.ID(), func(ktime.Superbeats, beatcallback.Issuer) beatcallback.Result {
		fired = true
		return beatcallback.Done()
	}, beatcallback.Absolute(ktime.SuperbeatsFromFloat(0)))

	ctrl.Run() // registers the callback (musical time now established)
	handle.Free()
	ctrl.Run() // run_callbacks should skip the freed callback

	assert.False(t, fired)
	assert.Empty(t, ctrl.callbacks)
}

func TestBeatCallbackFiresAndReschedules(t *testing.T) {
	ctrl, _ := newTestController(t)
	cmds := ctrl.NewCommands()

	var calls []ktime.Superbeats
	var mu sync.Mutex
	cmds.ScheduleBeatCallback(ctrl.topLevelGraphID, func(ts ktime.Superbeats, issue beatcallback.Issuer) beatcallback.Result {
		mu.Lock()
		calls = append(calls, ts)
		mu.Unlock()
		if len(calls) >= 3 {
			return beatcallback.Done()
		}
		return beatcallback.Again(ktime.SuperbeatsFromFloat(0))
	}, beatcallback.Absolute(ktime.SuperbeatsFromFloat(0)))

	ctrl.Run() // registers
	for i := 0; i < 5 && len(ctrl.callbacks) > 0; i++ {
		ctrl.Run()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, len(calls), 3)
	assert.Empty(t, ctrl.callbacks)
}

// A full resources ring defers the command instead of dropping or
// blocking, and it succeeds once the ring has room.
func TestResourcesBackpressureDefersThenSucceeds(t *testing.T) {
	ctrl, _ := newTestController(t, WithResourcesRingCapacity(1))
	cmds := ctrl.NewCommands()

	require.NoError(t, cmds.InsertBuffer(resources.Buffer{ID: 1}))
	require.NoError(t, cmds.InsertBuffer(resources.Buffer{ID: 2})) // ring capacity 1, this one defers

	ctrl.Run()
	require.Len(t, ctrl.deferred, 1)

	// Drain the ring to make room, the way the audio thread would.
	<-ctrl.ResourcesRing().Commands()

	ctrl.Run()
	assert.Empty(t, ctrl.deferred)
}

// run_maintenance drains the resources reply ring every tick and
// reports a failed Response the same way it reports a failed command,
// instead of leaving it for some other caller to pop.
func TestRunMaintenanceDrainsResourcesResponsesAndReportsErrors(t *testing.T) {
	ctrl, _ := newTestController(t)

	var reported []error
	ctrl.SetErrorHandler(func(err error) { reported = append(reported, err) })

	ring := ctrl.ResourcesRing()
	require.True(t, ring.PushResponse(resources.Response{Kind: resources.InsertBuffer, ID: 1}))
	require.True(t, ring.PushResponse(resources.Response{Kind: resources.InsertBuffer, ID: 2, Err: assert.AnError}))

	ctrl.Run()

	_, ok := ring.TryPopResponse()
	assert.False(t, ok, "run_maintenance should have drained both responses")
	require.Len(t, reported, 1, "only the failed response should reach the error handler")
}

func TestSetLookAheadUpdatesLookAhead(t *testing.T) {
	ctrl, _ := newTestController(t)
	assert.Equal(t, DefaultLookAheadBeats, ctrl.LookAhead())

	wider := ktime.SuperbeatsFromFloat(1.5)
	ctrl.SetLookAhead(wider)
	assert.Equal(t, wider, ctrl.LookAhead())
}

func TestDeferredEntryEvictedAfterMaxAge(t *testing.T) {
	now := time.Unix(0, 0)
	ctrl, g := newTestController(t, WithMaxDeferredAge(time.Second), WithClock(func() time.Time { return now }))

	var reported []error
	ctrl.SetErrorHandler(func(err error) { reported = append(reported, err) })

	id := knystid.NewNodeIdForGraph(g.ID())
	conn := change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}
	require.NoError(t, ctrl.queue.Send(command.Connect{Connection: conn}))
	ctrl.Run()
	require.Len(t, ctrl.deferred, 1)

	now = now.Add(2 * time.Second)
	ctrl.Run()

	assert.Empty(t, ctrl.deferred)
	require.Len(t, reported, 1)
}

func TestErrorHandlerRateLimited(t *testing.T) {
	now := time.Unix(0, 0)
	ctrl, g := newTestController(t, WithMaxDeferredAge(0), WithClock(func() time.Time { return now }))
	var mu sync.Mutex
	reported := 0
	ctrl.SetErrorHandler(func(error) { mu.Lock(); reported++; mu.Unlock() })

	for i := 0; i < 50; i++ {
		id := knystid.NewNodeIdForGraph(g.ID())
		conn := change.Connection{Source: change.NodeOutput(id, 0), Sink: change.GraphOutput(0), Channels: 1}
		require.NoError(t, ctrl.queue.Send(command.Connect{Connection: conn}))
	}
	ctrl.Run() // all 50 connects miss transiently and are deferred

	now = now.Add(time.Second)
	ctrl.Run() // all 50 are evicted and reported as permanent misses

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, reported, 50, "repeated permanent misses should be rate-limited to the error handler")
}

func TestRequestInspectionReturnsSnapshot(t *testing.T) {
	ctrl, _ := newTestController(t)
	cmds := ctrl.NewCommands()

	id := cmds.Push(graph.GeneratorNode{Generator: &testgraph.OnceTrig{}})
	ctrl.Run()

	reply, err := cmds.RequestInspection(ctrl.topLevelGraphID)
	require.NoError(t, err)
	ctrl.Run()

	select {
	case insp := <-reply:
		require.Len(t, insp.Nodes, 1)
		assert.True(t, insp.Nodes[0].ID.Equal(id))
	default:
		t.Fatal("expected an inspection snapshot to be ready")
	}
}
