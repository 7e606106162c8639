package importer

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches an import directory tree and reports export
// files that changed once they have been quiet for the debounce
// period. Editors and exporters often write a file in several
// steps; only the settled file is reported.
type Watcher struct {
	onChange func(paths []string)
	fsw      *fsnotify.Watcher
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher that calls onChange with the
// settled paths, sorted.
func NewWatcher(
	debounce time.Duration, onChange func(paths []string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive: %w", os.ErrInvalid)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		onChange: onChange,
		fsw:      fsw,
		debounce: debounce,
		now:      time.Now,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// WatchTree adds root and every directory below it. It returns
// the number of directories watched.
func (w *Watcher) WatchTree(root string) (int, error) {
	if _, err := os.Stat(root); err != nil {
		return 0, err
	}
	n := 0
	err := filepath.WalkDir(root,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if addErr := w.fsw.Add(path); addErr != nil {
				log.Printf("watch %s: %v", path, addErr)
				return nil
			}
			n++
			return nil
		})
	return n, err
}

// Start processes events until Stop is called. Calls after the
// first are no-ops.
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.loop()
	}
}

// Stop stops the watcher and waits for a started loop to finish.
// It is safe to call more than once, and without Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.started.Load() {
			<-w.done
		}
		w.fsw.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("import watcher: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

// handle records writes and creations of export files. New
// directories are watched as they appear.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				log.Printf("watch %s: %v", ev.Name, err)
			}
			return
		}
	}
	if !IsExportFile(ev.Name) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = w.now()
	w.mu.Unlock()
}

// flush reports paths that have been quiet for the debounce
// period.
func (w *Watcher) flush() {
	now := w.now()
	w.mu.Lock()
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	slices.Sort(ready)
	log.Printf("import watcher: %d file(s) changed", len(ready))
	w.onChange(ready)
}
