// Package sphere translates the notion of a thread-local "current
// Commands handle" into Go's goroutine model: instead of a global
// singleton every caller implicitly reaches for, a handle is carried
// explicitly on a context.Context and fetched with Current.
//
// A Sphere bundles a running Controller with a root Commands handle and
// the background goroutine that drives Controller.Run, for the common
// case of "start one command bus and go".
package sphere

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tuurlijk/knyst/commands"
	"github.com/Tuurlijk/knyst/controller"
	"github.com/Tuurlijk/knyst/graph"
	"github.com/Tuurlijk/knyst/knystconfig"
	"github.com/Tuurlijk/knyst/knystlog"
	"github.com/Tuurlijk/knyst/ktime"
)

type commandsKey struct{}

// WithCommands returns a context carrying handle as the current Commands
// handle, retrievable by Current.
func WithCommands(ctx context.Context, handle *commands.Commands) context.Context {
	return context.WithValue(ctx, commandsKey{}, handle)
}

// Current returns the Commands handle carried on ctx. It panics if none
// was attached with WithCommands: calling it outside a sphere is a
// programming error, not a runtime condition to recover from.
func Current(ctx context.Context) *commands.Commands {
	handle, ok := ctx.Value(commandsKey{}).(*commands.Commands)
	if !ok {
		panic("sphere: no Commands handle on context, call sphere.WithCommands first")
	}
	return handle
}

// Sphere owns a Controller and the goroutine ticking it at TickInterval.
type Sphere struct {
	Controller *controller.Controller
	Commands   *commands.Commands

	cancel        context.CancelFunc
	done          chan struct{}
	configWatcher *knystconfig.Watcher
}

// Option configures a Sphere's background tick loop.
type Option func(*startConfig)

type startConfig struct {
	tickInterval   time.Duration
	controllerOpts []controller.Option
	configPath     string
}

// WithTickInterval overrides how often the background goroutine calls
// Controller.Run. The default is tuned for a non-realtime demo loop, not
// an audio block rate.
func WithTickInterval(d time.Duration) Option {
	return func(c *startConfig) { c.tickInterval = d }
}

// WithControllerOptions forwards options to controller.New.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(c *startConfig) { c.controllerOpts = append(c.controllerOpts, opts...) }
}

// WithConfigFile loads Controller tuning settings from configPath via
// knystconfig at startup and keeps watching it for changes. The
// beat look-ahead window and reported-error rate limit are re-applied
// to the running Controller on every reload, without restarting it;
// the resources-ring capacity and command queue's drain batch size
// only take effect at this Start call, since the Controller fixes
// them at construction. Options passed alongside WithConfigFile take
// precedence over values loaded from configPath.
func WithConfigFile(path string) Option {
	return func(c *startConfig) { c.configPath = path }
}

// Start builds a Controller over topGraph and graphFactory, mints its
// root Commands handle, and launches a goroutine that calls
// Controller.Run on a fixed interval until Stop is called.
func Start(topGraph graph.Graph, graphFactory commands.GraphFactory, opts ...Option) *Sphere {
	cfg := startConfig{tickInterval: 10 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	var watcher *knystconfig.Watcher
	controllerOpts := cfg.controllerOpts
	if cfg.configPath != "" {
		settings, w, err := knystconfig.Watch(cfg.configPath)
		if err != nil {
			knystlog.ComponentLogger("sphere").Errorw("failed to load config, starting with defaults",
				knystlog.FieldError, err.Error())
		} else {
			watcher = w
			controllerOpts = append(settingsToControllerOptions(settings), controllerOpts...)
		}
	}

	ctrl := controller.New(topGraph, graphFactory, controllerOpts...)
	if watcher != nil {
		watcher.OnReload(func(settings *knystconfig.Settings) {
			ctrl.SetLookAhead(ktime.SuperbeatsFromFloat(settings.LookAheadBeats))
			ctrl.SetErrorRateLimit(rate.Limit(settings.ErrorRateLimitPerSec), settings.ErrorRateBurst)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sphere{
		Controller:    ctrl,
		Commands:      ctrl.NewCommands(),
		cancel:        cancel,
		done:          make(chan struct{}),
		configWatcher: watcher,
	}

	go s.tickLoop(ctx, cfg.tickInterval)
	return s
}

// settingsToControllerOptions translates a loaded Settings into the
// Controller options it corresponds to, so WithConfigFile's initial
// load shapes construction the same way explicit options would.
func settingsToControllerOptions(settings *knystconfig.Settings) []controller.Option {
	return []controller.Option{
		controller.WithMaxCommandsPerTick(settings.MaxCommandsPerTick),
		controller.WithLookAhead(ktime.SuperbeatsFromFloat(settings.LookAheadBeats)),
		controller.WithMaxDeferredAge(settings.MaxDeferredAge),
		controller.WithResourcesRingCapacity(settings.ResourcesRingCapacity),
		controller.WithErrorRateLimit(rate.Limit(settings.ErrorRateLimitPerSec), settings.ErrorRateBurst),
	}
}

func (s *Sphere) tickLoop(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Controller.Run()
		}
	}
}

// Context returns ctx with this Sphere's root Commands handle attached,
// for handing to code that expects sphere.Current to resolve.
func (s *Sphere) Context(ctx context.Context) context.Context {
	return WithCommands(ctx, s.Commands)
}

// Stop halts the background tick loop and waits for it to exit, then
// closes the config watcher started by WithConfigFile, if any.
func (s *Sphere) Stop() {
	s.cancel()
	<-s.done
	if s.configWatcher != nil {
		s.configWatcher.Close()
	}
}
