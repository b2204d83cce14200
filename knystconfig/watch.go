package knystconfig

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Tuurlijk/knyst/knysterr"
	"github.com/Tuurlijk/knyst/knystlog"
)

// ReloadCallback is invoked with the freshly reloaded Settings whenever
// the watched config file changes.
type ReloadCallback func(*Settings)

// Watcher watches a config file for changes and, after a debounce
// window, reloads it and invokes every registered callback. It never
// writes the file it watches, so it carries no own-write-suppression
// bookkeeping.
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	logger     *zap.SugaredLogger

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer

	done chan struct{}
}

// Watch starts watching configPath for changes and returns a Watcher
// ready to be stopped with Close. The initial Settings are loaded and
// returned alongside it so the caller doesn't need a separate Load call.
func Watch(configPath string) (*Settings, *Watcher, error) {
	settings, err := Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, knysterr.Wrap(err, "failed to create config watcher")
	}
	if err := fw.Add(configPath); err != nil {
		fw.Close()
		return nil, nil, knysterr.Wrapf(err, "failed to watch config file %s", configPath)
	}

	w := &Watcher{
		configPath: configPath,
		watcher:    fw,
		debounce:   500 * time.Millisecond,
		logger:     knystlog.ComponentLogger("knystconfig"),
		done:       make(chan struct{}),
	}
	go w.loop()
	return settings, w, nil
}

// OnReload registers a callback invoked, in registration order, after
// every successful reload.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", knystlog.FieldError, err.Error())
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	settings, err := Load(w.configPath)
	if err != nil {
		w.logger.Errorw("config reload failed", knystlog.FieldError, err.Error())
		return
	}
	w.logger.Infow("config reloaded", "path", w.configPath)

	w.mu.Lock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(settings)
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
