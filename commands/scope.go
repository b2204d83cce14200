package commands

import (
	"github.com/Tuurlijk/knyst/change"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knysterr"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/knystlog"
	"github.com/Tuurlijk/knyst/ktime"
)

func scheduleChangesCommand(t ktime.Time, changes []change.NodeChanges) command.Command {
	return command.ScheduleChanges{Changes: change.SimultaneousChanges{Time: t, Changes: changes}}
}

// LocalGraphHandle names a local graph scope opened by InitLocalGraph,
// before it has been uploaded as a node.
type LocalGraphHandle struct {
	GraphID  knystid.GraphId
	Settings graph.Settings
}

// InitLocalGraph constructs a fresh Graph via the facade's GraphFactory
// and pushes it onto the thread-local local-graph scope stack: Push,
// Connect, and ScheduleChange calls that target it now resolve
// synchronously against it instead of crossing the command channel.
// Release the scope with UploadLocalGraph, or prefer UploadGraph for
// guaranteed release including on panic.
func (c *Commands) InitLocalGraph(settings graph.Settings) LocalGraphHandle {
	gid := knystid.NewGraphId()
	g := c.graphFactory(settings)

	c.localGraphs = append(c.localGraphs, localGraphFrame{
		graphID:         gid,
		graph:           g,
		settings:        settings,
		priorTarget:     c.selectedGraphID,
		priorBundleTime: c.bundleTime,
	})
	c.selectedGraphID = gid
	return LocalGraphHandle{GraphID: gid, Settings: settings}
}

// UploadLocalGraph pops the top local-graph scope and pushes the
// finished graph as a single SubGraph node into whichever graph was
// selected before the matching InitLocalGraph, returning that node's
// id. Calling it with no open scope is a protocol misuse: it is
// logged and returns a KindProtocolMisuse error rather than panicking.
func (c *Commands) UploadLocalGraph() (knystid.NodeId, error) {
	if len(c.localGraphs) == 0 {
		c.logger.Warnw("upload_local_graph called with no open local graph scope")
		return knystid.NodeId{}, knysterr.WithKind(knysterr.New("no open local graph scope"), knysterr.KindProtocolMisuse)
	}

	n := len(c.localGraphs)
	top := c.localGraphs[n-1]
	c.localGraphs = c.localGraphs[:n-1]
	c.selectedGraphID = top.priorTarget
	c.bundleTime = top.priorBundleTime

	return c.pushTo(graph.SubGraph{Graph: top.graph}, top.priorTarget), nil
}

// UploadGraph opens a local-graph scope, runs body against this same
// handle, and uploads the scope — guaranteed, even if body panics, in
// which case UploadGraph re-panics after releasing the scope so the
// stack never leaks a frame the panicking caller never got to close.
func (c *Commands) UploadGraph(settings graph.Settings, body func(*Commands)) (id knystid.NodeId, err error) {
	c.InitLocalGraph(settings)

	var bodyPanic any
	func() {
		defer func() { bodyPanic = recover() }()
		body(c)
	}()

	id, err = c.UploadLocalGraph()
	if bodyPanic != nil {
		panic(bodyPanic)
	}
	return id, err
}

// StartSchedulingBundle opens a scheduling bundle: subsequent
// ScheduleChange/ScheduleChanges calls accumulate instead of sending
// immediately, and subsequent Push calls (local or remote) carry t as
// their start_time. Calling it again while a bundle is already open is
// a protocol misuse that is logged and does not discard the
// accumulated content — a caller who nests bundle scopes by mistake
// still gets everything scheduled, just not at the time they probably
// intended for the inner call.
func (c *Commands) StartSchedulingBundle(t ktime.Time) {
	if c.bundleOpen {
		c.logger.Warnw("start_scheduling_bundle called while a bundle is already open; keeping accumulated changes",
			knystlog.FieldCount, len(c.bundleChanges))
	}
	c.bundleOpen = true
	c.bundleTime = t
}

// UploadSchedulingBundle closes the open bundle and sends its
// accumulated changes as one ScheduleChanges command. Calling it with
// no open bundle is a protocol misuse: logged, and a no-op.
func (c *Commands) UploadSchedulingBundle() error {
	if !c.bundleOpen {
		c.logger.Warnw("upload_scheduling_bundle called with no open bundle")
		return nil
	}
	changes := c.bundleChanges
	t := c.bundleTime

	c.bundleOpen = false
	c.bundleChanges = nil
	c.bundleTime = ktime.Immediately()

	if len(changes) == 0 {
		return nil
	}
	return c.send(scheduleChangesCommand(t, changes))
}

// ScheduleBundle opens a bundle at t, runs body, and uploads the
// bundle — guaranteed, even if body panics.
func (c *Commands) ScheduleBundle(t ktime.Time, body func(*Commands)) error {
	c.StartSchedulingBundle(t)

	var bodyPanic any
	func() {
		defer func() { bodyPanic = recover() }()
		body(c)
	}()

	err := c.UploadSchedulingBundle()
	if bodyPanic != nil {
		panic(bodyPanic)
	}
	return err
}
