package controller

import (
	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knysterr"
	"github.com/Tuurlijk/knyst/knystlog"
)

// applyCommand dispatches cmd against the top-level graph (or, for
// Resources, the audio-thread ring). It returns the error the
// operation failed with, classified by isTransient/reportCommandError
// into retry, report, or warn-and-continue; nil means it succeeded.
//
// Every command here is applied to the top-level graph. The GraphId a
// command carries (Push, FreeDisconnectedNodes, ChangeMusicalTimeMap)
// is not used for routing, so a command aimed at another graph is
// applied to the top-level graph all the same; only RequestInspection
// looks at it, answering an empty snapshot for any other graph.
// Operations on an open local graph that the Commands facade resolves
// client-side (see commands.Commands.Connect/ScheduleChange) never
// reach the Controller; FreeNode and its variants always do.
func (c *Controller) applyCommand(cmd command.Command) error {
	switch v := cmd.(type) {
	case command.Push:
		return c.topGraph.PushWithExistingAddressToGraphAtTime(v.Thing, v.NodeID, v.StartTime)
	case command.Connect:
		return c.topGraph.Connect(v.Connection)
	case command.Disconnect:
		return c.topGraph.Disconnect(v.Connection)
	case command.FreeNode:
		return c.topGraph.FreeNode(v.Node)
	case command.FreeNodeMendConnections:
		return c.topGraph.FreeNodeMendConnections(v.Node)
	case command.FreeDisconnectedNodes:
		return c.topGraph.FreeDisconnectedNodes()
	case command.ScheduleChange:
		return c.topGraph.ScheduleChange(v.Change)
	case command.ScheduleChanges:
		return c.topGraph.ScheduleChanges(v.Changes)
	case command.Resources:
		return c.applyResources(v)
	case command.ChangeMusicalTimeMap:
		c.topGraph.ChangeMusicalTimeMap(v.Mutate)
		return nil
	case command.ScheduleBeatCallback:
		return c.applyScheduleBeatCallback(v)
	case command.RequestInspection:
		return c.applyRequestInspection(v)
	default:
		return knysterr.WithKind(knysterr.Newf("unknown command type %T", cmd), knysterr.KindGraphStructureViolation)
	}
}

func (c *Controller) applyResources(v command.Resources) error {
	if !c.resourcesRing.TryPush(v.Op) {
		return knysterr.WithKind(knysterr.New("resources ring full"), knysterr.KindBackpressureFull)
	}
	return nil
}

func (c *Controller) applyRequestInspection(v command.RequestInspection) error {
	var insp graph.Inspection
	if v.GraphID == c.topLevelGraphID {
		insp = c.topGraph.GenerateInspection()
	} else {
		insp = graph.Inspection{GraphID: v.GraphID}
	}

	c.logger.Debugw("inspection generated",
		knystlog.FieldRequestID, v.RequestID.String(),
		knystlog.FieldGraphID, v.GraphID.String())

	select {
	case v.Reply <- insp:
	default:
	}
	return nil
}

func (c *Controller) applyScheduleBeatCallback(v command.ScheduleBeatCallback) error {
	current, ok := c.topGraph.CurrentMusicalTime()
	if !ok {
		return knysterr.WithKind(knysterr.New("musical time not yet established"), knysterr.KindTransientReferenceMiss)
	}

	switch v.Start.Kind {
	case beatcallback.StartMultiple:
		v.Callback.NextTimestamp = current.CeilMultiple(v.Start.Value)
	default: // beatcallback.StartAbsolute
		v.Callback.NextTimestamp = v.Start.Value
	}

	c.mu.Lock()
	c.callbacks = append(c.callbacks, v.Callback)
	c.mu.Unlock()

	c.logger.Debugw("beat callback registered",
		knystlog.FieldCallbackID, v.Callback.ID.String(),
		knystlog.FieldGraphID, v.GraphID.String())
	return nil
}
