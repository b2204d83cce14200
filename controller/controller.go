// Package controller implements the Controller: the single-owner
// reconciler that drains the command queue every Commands handle feeds
// into, applies each command to the top-level Graph, runs the
// beat-callback engine's musical-time re-entry, and classifies every
// error the Graph returns into retry, report, or warn-and-continue.
//
// Exactly one goroutine should call Run; everything else — minting a
// fresh Commands handle, registering an error handler — is safe to
// call from any goroutine.
package controller

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tuurlijk/knyst/beatcallback"
	"github.com/Tuurlijk/knyst/command"
	"github.com/Tuurlijk/knyst/commands"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knysterr"
	"github.com/Tuurlijk/knyst/knystid"
	"github.com/Tuurlijk/knyst/knystlog"
	"github.com/Tuurlijk/knyst/ktime"
	"github.com/Tuurlijk/knyst/resources"
)

// DefaultMaxCommandsPerTick bounds how many queued commands Run applies
// in a single call, so one enormous backlog can't starve run_callbacks
// or run_maintenance for an unbounded amount of time.
const DefaultMaxCommandsPerTick = 1024

// DefaultLookAheadBeats is how far ahead of the current musical time
// run_callbacks will fire a callback early, absorbing jitter in how
// often Run is called relative to the audio block rate.
var DefaultLookAheadBeats = ktime.SuperbeatsFromFloat(0.25)

// Controller owns the top-level Graph and the command queue every
// Commands handle feeds into.
type Controller struct {
	mu sync.Mutex // guards errorHandler, callbacks, lookAhead, limiter; Run itself is meant for one goroutine

	topLevelGraphID knystid.GraphId
	topGraph        graph.Graph
	graphFactory    commands.GraphFactory
	resourcesRing   *resources.Ring

	queue     *commandQueue
	deferred  []deferredEntry
	callbacks []*beatcallback.Callback

	maxCommandsPerTick int
	maxDeferredAge     time.Duration
	lookAhead          ktime.Superbeats
	now                func() time.Time

	errorHandler func(error)
	limiter      *rate.Limiter

	logger *zap.SugaredLogger
}

// New builds a Controller owning topGraph. graphFactory builds the
// Graph implementation used for any Commands handle's local-graph
// scopes (InitLocalGraph/UploadGraph); it must produce graphs of a kind
// the rest of the program is prepared to push as a SubGraph node, but
// need not match topGraph's own concrete type.
func New(topGraph graph.Graph, graphFactory commands.GraphFactory, opts ...Option) *Controller {
	c := &Controller{
		topLevelGraphID:    topGraph.ID(),
		topGraph:           topGraph,
		graphFactory:       graphFactory,
		resourcesRing:      resources.NewRing(256),
		queue:              newCommandQueue(),
		maxCommandsPerTick: DefaultMaxCommandsPerTick,
		maxDeferredAge:     5 * time.Second,
		lookAhead:          DefaultLookAheadBeats,
		now:                time.Now,
		limiter:            rate.NewLimiter(rate.Every(time.Second), 20),
		logger:             knystlog.ComponentLogger("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCommands mints a fresh Commands handle targeting the top-level
// graph, independent scope state from every other handle.
func (c *Controller) NewCommands() *commands.Commands {
	return commands.New(c.queue, c.graphFactory, c.topLevelGraphID)
}

// ResourcesRing exposes the bounded ring the audio thread stand-in
// drains Resources commands from and posts Responses to.
func (c *Controller) ResourcesRing() *resources.Ring { return c.resourcesRing }

// SetErrorHandler installs the callback Run reports non-transient
// errors to, rate-limited. Safe to call from any goroutine.
func (c *Controller) SetErrorHandler(h func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorHandler = h
}

// SetLookAhead changes how far ahead of the current musical time
// run_callbacks fires a callback early. Safe to call from any
// goroutine, including while Run is ticking on another; it takes
// effect on the next call to Run.
func (c *Controller) SetLookAhead(beats ktime.Superbeats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookAhead = beats
}

// SetErrorRateLimit changes the rate limit applied to error-handler
// reports. Safe to call from any goroutine.
func (c *Controller) SetErrorRateLimit(r rate.Limit, burst int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(r, burst)
}

// LookAhead returns the look-ahead window run_callbacks currently uses.
// Safe to call from any goroutine.
func (c *Controller) LookAhead() ktime.Superbeats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookAhead
}

// Run executes one reconciliation tick: run_callbacks, retry the
// deferred backlog, drain and apply up to maxCommandsPerTick queued
// commands, then run_maintenance. It returns whether the command queue
// was fully drained (false means a backlog remains for the next tick).
func (c *Controller) Run() (drained bool) {
	c.runCallbacks()
	c.retryDeferred()
	drained = c.receiveAndApplyCommands()
	c.runMaintenance()
	return drained
}

func (c *Controller) receiveAndApplyCommands() bool {
	cmds, exhausted := c.queue.drainUpTo(c.maxCommandsPerTick)
	for _, cmd := range cmds {
		if err := c.applyCommand(cmd); err != nil {
			if c.isTransient(err) {
				c.deferCommand(cmd)
				continue
			}
			c.reportCommandError(cmd, err)
		}
	}
	return exhausted
}

func (c *Controller) runMaintenance() {
	c.topGraph.Update()

	for {
		resp, ok := c.resourcesRing.TryPopResponse()
		if !ok {
			break
		}
		if resp.Err != nil {
			c.reportResourcesError(resp)
		}
	}
}

func (c *Controller) reportResourcesError(resp resources.Response) {
	c.logger.Errorw("resources response failed",
		knystlog.FieldResourceOp, resp.Kind.String(),
		knystlog.FieldResourceID, resp.ID,
		knystlog.FieldError, resp.Err.Error())

	tagged := knysterr.WithKind(resp.Err, knysterr.KindPermanentReferenceMiss)

	if handler, limiter := c.handlerAndLimiter(); handler != nil && limiter.Allow() {
		handler(knysterr.Wrap(tagged, "resources response failed"))
	}
}

// handlerAndLimiter snapshots the error handler and rate limiter under
// lock, so a concurrent SetErrorHandler/SetErrorRateLimit call can't
// race a report in progress.
func (c *Controller) handlerAndLimiter() (func(error), *rate.Limiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorHandler, c.limiter
}

func (c *Controller) isTransient(err error) bool {
	switch knysterr.KindOf(wrapWithGraphKind(err)) {
	case knysterr.KindTransientReferenceMiss, knysterr.KindBackpressureFull:
		return true
	default:
		return false
	}
}

// wrapWithGraphKind lets isTransient/report share one classification
// path for both knysterr-tagged errors (protocol misuse from the
// facade) and graph-package typed errors (everything the Graph
// collaborator returns).
func wrapWithGraphKind(err error) error {
	if knysterr.KindOf(err) != knysterr.KindUnknown {
		return err
	}
	if kind := graph.Kind(err); kind != knysterr.KindUnknown {
		return knysterr.WithKind(err, kind)
	}
	return err
}

func (c *Controller) reportCommandError(cmd command.Command, err error) {
	tagged := wrapWithGraphKind(err)
	kind := knysterr.KindOf(tagged)

	if kind == knysterr.KindProtocolMisuse {
		c.logger.Warnw("protocol misuse", knystlog.FieldCommand, commandName(cmd), knystlog.FieldError, err.Error())
		return
	}

	c.logger.Errorw("command failed",
		knystlog.FieldCommand, commandName(cmd),
		knystlog.FieldErrorKind, kind.String(),
		knystlog.FieldError, err.Error())

	handler, limiter := c.handlerAndLimiter()
	if handler == nil {
		return
	}
	if limiter.Allow() {
		handler(knysterr.Wrap(tagged, "knyst command failed"))
	}
}

func (c *Controller) reportEvictedDeferred(entry deferredEntry) {
	c.logger.Warnw("deferred command evicted after max age",
		knystlog.FieldCommand, commandName(entry.Command),
		knystlog.FieldDeferredAge, c.now().Sub(entry.EnqueuedAt).String())

	permanent := knysterr.WithKind(knysterr.Newf("%s: reference never resolved", commandName(entry.Command)), knysterr.KindPermanentReferenceMiss)

	if handler, limiter := c.handlerAndLimiter(); handler != nil && limiter.Allow() {
		handler(permanent)
	}
}

func commandName(cmd command.Command) string {
	switch cmd.(type) {
	case command.Push:
		return "push"
	case command.Connect:
		return "connect"
	case command.Disconnect:
		return "disconnect"
	case command.FreeNode:
		return "free_node"
	case command.FreeNodeMendConnections:
		return "free_node_mend_connections"
	case command.FreeDisconnectedNodes:
		return "free_disconnected_nodes"
	case command.ScheduleChange:
		return "schedule_change"
	case command.ScheduleChanges:
		return "schedule_changes"
	case command.Resources:
		return "resources"
	case command.ChangeMusicalTimeMap:
		return "change_musical_time_map"
	case command.ScheduleBeatCallback:
		return "schedule_beat_callback"
	case command.RequestInspection:
		return "request_inspection"
	default:
		return "unknown_command"
	}
}
