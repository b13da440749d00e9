package fswatch

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op classifies a file event.
type Op int

const (
	// OpChanged means the file was written or (re)created.
	OpChanged Op = iota + 1
	// OpRemoved means the file was removed or renamed away.
	OpRemoved
)

func (o Op) String() string {
	switch o {
	case OpChanged:
		return "changed"
	case OpRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to callbacks for watched files only.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches files for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func(Event)
	files     map[string]struct{}
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		files:   make(map[string]struct{}),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a file. Its directory must exist.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error("failed to watch directory", "path", dir, "error", err)
		return err
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching file for changes", "dir", dir, "file", filepath.Base(abs))
	return nil
}

// OnChange registers a callback for events on watched files.
func (w *Watcher) OnChange(callback func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start blocks delivering events until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.dispatch(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) dispatch(event fsnotify.Event) {
	var op Op
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		op = OpChanged
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpRemoved
	default:
		return
	}

	name := filepath.Clean(event.Name)
	if abs, err := filepath.Abs(name); err == nil {
		name = abs
	}

	w.mu.RLock()
	_, watched := w.files[name]
	callbacks := make([]func(Event), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	if !watched {
		return
	}

	w.logger.Debug("watched file event", "file", name, "op", op.String())
	for _, cb := range callbacks {
		cb(Event{Path: name, Op: op})
	}
}
