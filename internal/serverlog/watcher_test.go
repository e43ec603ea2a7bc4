package serverlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antredesloutres/otternel/internal/offset"
)

func startWatcher(t *testing.T, cfg WatcherConfig, store offset.OffsetStore, handler LineHandler) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(cfg, store, handler)

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("Watch() returned before ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watcher not ready after 5s")
	}

	return cancel, done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatcherForwardsAppendedLine(t *testing.T) {
	dir := t.TempDir()
	store := offset.NewMemoryStore()
	handler := &recordingHandler{}

	cancel, done := startWatcher(t, WatcherConfig{Dir: dir}, store, handler)
	defer cancel()

	path := filepath.Join(dir, "5.log")
	appendFile(t, path, "Steve left the game\n")

	waitFor(t, "line to be forwarded", func() bool {
		for _, l := range handler.snapshot() {
			if l.Text == "Steve left the game" && l.HasSource && l.Source == 5 {
				return true
			}
		}
		return false
	})

	abs, _ := filepath.Abs(path)
	waitFor(t, "offset to advance", func() bool {
		off, _ := store.Get(context.Background(), abs)
		return off == uint64(len("Steve left the game\n"))
	})

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not stop after cancel")
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}

	cancel, _ := startWatcher(t, WatcherConfig{Dir: dir}, offset.NewMemoryStore(), handler)
	defer cancel()

	appendFile(t, filepath.Join(dir, "5.txt"), "Steve left the game\n")
	// A .log write afterwards proves events are flowing
	appendFile(t, filepath.Join(dir, "6.log"), "marker\n")

	waitFor(t, "marker line", func() bool {
		return len(handler.snapshot()) > 0
	})

	for _, l := range handler.snapshot() {
		if filepath.Ext(l.Path) != ".log" {
			t.Errorf("forwarded line from non-log file %s", l.Path)
		}
	}
}

func TestWatcherForgetsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	store := offset.NewMemoryStore()
	handler := &recordingHandler{}

	cancel, _ := startWatcher(t, WatcherConfig{Dir: dir}, store, handler)
	defer cancel()

	path := filepath.Join(dir, "8.log")
	abs, _ := filepath.Abs(path)
	appendFile(t, path, "hello\n")

	waitFor(t, "offset to be recorded", func() bool {
		off, _ := store.Get(context.Background(), abs)
		return off > 0
	})

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	waitFor(t, "offset to be forgotten", func() bool {
		offsets, _ := store.List(context.Background())
		_, ok := offsets[abs]
		return !ok
	})
}

func TestWatcherSkipExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3.log")
	writeFile(t, path, "history line\n")

	store := offset.NewMemoryStore()
	handler := &recordingHandler{}

	cancel, _ := startWatcher(t, WatcherConfig{Dir: dir, SkipExisting: true}, store, handler)
	defer cancel()

	appendFile(t, path, "new line\n")

	waitFor(t, "new line", func() bool {
		return len(handler.snapshot()) > 0
	})

	for _, l := range handler.snapshot() {
		if l.Text == "history line" {
			t.Error("existing content was replayed with SkipExisting")
		}
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(WatcherConfig{Dir: filepath.Join(t.TempDir(), "nope")}, offset.NewMemoryStore(), &recordingHandler{})

	err := w.Watch(context.Background())
	if !errors.Is(err, ErrDirNotFound) {
		t.Fatalf("Watch() error = %v, want ErrDirNotFound", err)
	}
}

func TestWatcherDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x")

	w := NewWatcher(WatcherConfig{Dir: file}, offset.NewMemoryStore(), &recordingHandler{})
	if err := w.Watch(context.Background()); !errors.Is(err, ErrDirNotFound) {
		t.Fatalf("Watch() error = %v, want ErrDirNotFound", err)
	}
}
