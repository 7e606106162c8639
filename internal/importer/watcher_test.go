package importer

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestWatcher watches a fresh temp dir and stops the watcher
// on cleanup.
func startTestWatcher(
	t *testing.T, onChange func([]string),
) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWatcher(50*time.Millisecond, onChange)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if _, err := w.WatchTree(dir); err != nil {
		t.Fatalf("WatchTree: %v", err)
	}
	w.Start()
	t.Cleanup(w.Stop)
	return w, dir
}

// pollUntil polls fn until it returns true or the timeout
// expires.
func pollUntil(
	t *testing.T, timeout time.Duration, msg string, fn func() bool,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !fn() {
		t.Fatal(msg)
	}
}

// newMockWatcher builds a Watcher without fsnotify for unit
// tests of the debounce logic.
func newMockWatcher(
	debounce time.Duration, onChange func([]string),
) *Watcher {
	return &Watcher{
		onChange: onChange,
		debounce: debounce,
		now:      time.Now,
		pending:  make(map[string]time.Time),
	}
}

func TestNewWatcherValidation(t *testing.T) {
	_, err := NewWatcher(time.Second, nil)
	assert.True(t, errors.Is(err, os.ErrInvalid))
	_, err = NewWatcher(0, func([]string) {})
	assert.True(t, errors.Is(err, os.ErrInvalid))
}

func TestWatcherReportsExportFiles(t *testing.T) {
	var mu sync.Mutex
	var got []string
	_, dir := startTestWatcher(t, func(paths []string) {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()
	})

	export := filepath.Join(dir, "export.json")
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, other, "x")
	writeFile(t, export, "{}")

	pollUntil(t, 5*time.Second, "export file never reported", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(got, export)
	})
	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, got, other)
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	var mu sync.Mutex
	var got []string
	w, dir := startTestWatcher(t, func(paths []string) {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()
	})

	sub := filepath.Join(dir, "later")
	require.NoError(t, os.Mkdir(sub, 0o755))
	pollUntil(t, 5*time.Second, "new directory never watched", func() bool {
		return slices.Contains(w.fsw.WatchList(), sub)
	})

	nested := filepath.Join(sub, "nested.json")
	writeFile(t, nested, "[]")
	pollUntil(t, 5*time.Second, "nested file never reported", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(got, nested)
	})
}

func TestWatcherDebounce(t *testing.T) {
	var calls [][]string
	w := newMockWatcher(time.Second, func(paths []string) {
		calls = append(calls, paths)
	})
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := base
	w.now = func() time.Time { return now }

	w.handle(fsnotify.Event{Name: "/d/b.json", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Create})
	w.handle(fsnotify.Event{Name: "/d/c.txt", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/d/d.json", Op: fsnotify.Remove})

	now = base.Add(500 * time.Millisecond)
	w.flush()
	assert.Empty(t, calls, "nothing has settled yet")

	// A new write restarts the quiet period for that file.
	w.handle(fsnotify.Event{Name: "/d/b.json", Op: fsnotify.Write})

	now = base.Add(time.Second)
	w.flush()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/d/a.json"}, calls[0])

	now = base.Add(2 * time.Second)
	w.flush()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"/d/b.json"}, calls[1])

	w.flush()
	assert.Len(t, calls, 2, "flushed paths are not reported again")
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, err := NewWatcher(50*time.Millisecond, func([]string) {})
	require.NoError(t, err)
	w.Start()

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := NewWatcher(50*time.Millisecond, func([]string) {})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a watcher that was never started")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	w, err := NewWatcher(50*time.Millisecond, func([]string) {})
	require.NoError(t, err)
	w.Start()
	w.Start()

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}

func TestWatcherLogsNewDirectoryFailure(t *testing.T) {
	origOutput := log.Writer()
	t.Cleanup(func() { log.SetOutput(origOutput) })
	var buf bytes.Buffer
	log.SetOutput(&buf)

	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	require.NoError(t, fsw.Close())
	w := newMockWatcher(50*time.Millisecond, func([]string) {})
	w.fsw = fsw

	sub := filepath.Join(t.TempDir(), "new")
	require.NoError(t, os.Mkdir(sub, 0o755))
	w.handle(fsnotify.Event{Name: sub, Op: fsnotify.Create})

	assert.Contains(t, buf.String(), "watch "+sub)
	assert.Empty(t, w.pending)
}
