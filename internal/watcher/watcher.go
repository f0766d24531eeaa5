// Package watcher turns raw fsnotify events on the source tree into
// debounced, deduplicated change batches for the dev server.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yklcs/areum/internal/logging"
	"github.com/yklcs/areum/internal/srcfs"
)

// Watcher watches a source tree for changes with debouncing.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	filters   []Filter
	handlers  []Handler
	log       logging.Logger
	mu        sync.RWMutex
}

// Event is one file change after filtering.
type Event struct {
	Op   Op
	Path string
}

// Op classifies a change.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Filter reports whether a path is interesting. All filters must accept a
// path for it to reach the debouncer.
type Filter func(path string) bool

// Handler receives one debounced batch of events.
type Handler func(events []Event)

// debouncer coalesces rapid changes into one batch per quiet period,
// deduplicated by path.
type debouncer struct {
	delay   time.Duration
	events  chan Event
	output  chan []Event
	timer   *time.Timer
	pending []Event
	mu      sync.Mutex
}

// New creates a watcher flushing batches after delay of quiet.
func New(delay time.Duration, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{
		watcher: fsw,
		debouncer: &debouncer{
			delay:  delay,
			events: make(chan Event, 100),
			output: make(chan []Event, 10),
		},
		log: log.WithComponent("watcher"),
	}, nil
}

// AddFilter registers a path filter.
func (w *Watcher) AddFilter(f Filter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filters = append(w.filters, f)
}

// AddHandler registers a batch handler.
func (w *Watcher) AddHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// AddRecursive watches root and every subdirectory beneath it, skipping
// hidden directories.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(filepath.Clean(root), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Start runs the watcher until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.debouncer.run(ctx)
	go w.dispatch(ctx)
	go w.watch(ctx)
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.debouncer.mu.Lock()
	if w.debouncer.timer != nil {
		w.debouncer.timer.Stop()
	}
	w.debouncer.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, err, "watch error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	// A new directory must be watched too; fsnotify is not recursive.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(ev.Name); err != nil {
				w.log.Warn(context.Background(), err, "watch new directory", "path", ev.Name)
			}
			return
		}
	}

	w.mu.RLock()
	filters := w.filters
	w.mu.RUnlock()
	for _, f := range filters {
		if !f(ev.Name) {
			return
		}
	}

	var op Op
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpRemove
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		op = OpModify
	}

	select {
	case w.debouncer.events <- Event{Op: op, Path: ev.Name}:
	default:
		// Backlogged; the batch already in flight covers the rebuild.
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-w.debouncer.output:
			w.mu.RLock()
			handlers := w.handlers
			w.mu.RUnlock()
			for _, h := range handlers {
				h(events)
			}
		}
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.add(ev)
		}
	}
}

func (d *debouncer) add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, ev)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return
	}

	byPath := make(map[string]Event, len(d.pending))
	order := make([]string, 0, len(d.pending))
	for _, ev := range d.pending {
		if _, seen := byPath[ev.Path]; !seen {
			order = append(order, ev.Path)
		}
		byPath[ev.Path] = ev
	}

	events := make([]Event, 0, len(order))
	for _, path := range order {
		events = append(events, byPath[path])
	}

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// SourceFilter accepts files areum builds from: pages, markdown, scripts,
// and stylesheets.
func SourceFilter(path string) bool {
	return srcfs.KindOf(path) != srcfs.KindOther
}

// NoHiddenFilter rejects dotfiles and anything under a hidden directory.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return false
		}
	}
	return true
}
