package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/axivo/mcp-lsp/internal/event"
	"github.com/axivo/mcp-lsp/internal/logging"
)

// Watcher watches the configuration file for changes and reloads it,
// publishing ConfigReloaded on success and ConfigReloadFailed on a bad
// parse. A failed reload never discards the last-good Store.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string

	mu      sync.RWMutex
	current *Store

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewWatcher creates a config file watcher seeded with the given Store.
func NewWatcher(path string, initial *Store) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{
		watcher: w,
		path:    path,
		current: initial,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for changes in the background.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		event.PublishSync(event.Event{
			Type: event.ConfigReloadFailed,
			Data: event.ConfigReloadFailedData{Path: w.path, Error: err.Error()},
		})
		return
	}

	w.mu.Lock()
	unchanged := w.current.Equal(next)
	w.current = next
	w.mu.Unlock()

	if unchanged {
		return
	}
	event.PublishSync(event.Event{
		Type: event.ConfigReloaded,
		Data: event.ConfigReloadedData{Path: w.path},
	})
}

// Current returns the last-good Store observed by the watcher.
func (w *Watcher) Current() *Store {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop stops the watcher. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	if started {
		<-w.doneCh
	}
	return w.watcher.Close()
}
