package serverlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/antredesloutres/otternel/internal/metrics"
	"github.com/antredesloutres/otternel/internal/offset"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultRetryDelay is the pause after a watcher error before consuming again
const DefaultRetryDelay = 1 * time.Second

var (
	// ErrDirNotFound is returned by Watch when the log directory is missing
	ErrDirNotFound = errors.New("log directory does not exist")

	errChannelClosed = errors.New("notification channel closed")
)

// WatcherConfig configures the watch loop
type WatcherConfig struct {
	Dir          string        // directory holding <id>.log files (not recursive)
	RetryDelay   time.Duration // pause after watcher errors, DefaultRetryDelay if zero
	SkipExisting bool          // start existing files at their current size instead of 0
}

// Watcher is the single consumer of filesystem notifications for the log directory.
// It exclusively owns the offset store; every read, decode and dispatch happens on
// the goroutine running Watch.
type Watcher struct {
	cfg     WatcherConfig
	offsets offset.OffsetStore
	tailer  *Tailer

	ready     chan struct{}
	readyOnce sync.Once
}

// NewWatcher creates a watch loop for cfg.Dir
func NewWatcher(cfg WatcherConfig, offsets offset.OffsetStore, handler LineHandler) *Watcher {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Watcher{
		cfg:     cfg,
		offsets: offsets,
		tailer:  NewTailer(offsets, handler),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the directory subscription is active
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch subscribes to the log directory and processes notifications until ctx is
// cancelled. It only returns early on setup errors (missing directory, watcher
// creation failure); runtime errors are logged and the loop continues.
func (w *Watcher) Watch(ctx context.Context) error {
	dir, err := filepath.Abs(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
	}

	fsw, err := subscribe(dir)
	if err != nil {
		return err
	}

	if w.cfg.SkipExisting {
		w.skipExisting(ctx, dir)
	}

	w.readyOnce.Do(func() { close(w.ready) })

	log.Info().
		Str("dir", dir).
		Msg("Watching folder for .log changes")

	for {
		err := w.consume(ctx, fsw)
		fsw.Close()

		if ctx.Err() != nil {
			log.Info().Str("dir", dir).Msg("Watch loop stopped")
			return ctx.Err()
		}

		log.Error().
			Err(err).
			Dur("retry_delay", w.cfg.RetryDelay).
			Msg("Watcher stopped delivering events, retrying")

		// Re-create the watcher until it works again
		for {
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
				return ctx.Err()
			}
			fsw, err = subscribe(dir)
			if err == nil {
				log.Info().Str("dir", dir).Msg("Watcher re-created")
				break
			}
			log.Error().
				Err(err).
				Str("dir", dir).
				Msg("Failed to re-create watcher")
		}
	}
}

// subscribe creates a non-recursive fsnotify watch on dir
func subscribe(dir string) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return fsw, nil
}

// consume processes events until ctx is done or the watcher closes its channels
func (w *Watcher) consume(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return errChannelClosed
			}
			w.handleEvent(ctx, ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errChannelClosed
			}
			log.Error().
				Err(err).
				Dur("retry_delay", w.cfg.RetryDelay).
				Msg("Watcher error")
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
				return ctx.Err()
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !isLogFile(ev.Name) {
		return
	}

	log.Debug().
		Str("file", ev.Name).
		Str("op", ev.Op.String()).
		Msg("Event")

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if err := w.tailer.ReadNew(ctx, ev.Name); err != nil {
			metrics.ReadErrors.Inc()
			log.Warn().
				Err(err).
				Str("file", ev.Name).
				Msg("Error reading log file")
		}

	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if err := w.offsets.Delete(ctx, ev.Name); err != nil {
			log.Warn().
				Err(err).
				Str("file", ev.Name).
				Msg("Failed to forget offset")
		}
		log.Info().
			Str("file", ev.Name).
			Msg("File removed")
	}
}

// skipExisting records the current size of every .log file so that only bytes
// written from now on are considered
func (w *Watcher) skipExisting(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to list existing log files")
		return
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isLogFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := w.offsets.Set(ctx, path, uint64(info.Size())); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to record existing size")
			continue
		}
		log.Debug().
			Str("file", path).
			Int64("offset", info.Size()).
			Msg("Skipping existing content")
	}
}

// sleepCtx waits for d and reports false if ctx was cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
