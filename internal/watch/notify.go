package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/savescum/savescum/internal/fsops"
)

// Watcher error backoff tuning. Sustained errors (e.g. kernel buffer
// overflow) back off exponentially instead of spinning.
const (
	watchErrInitBackoff = 100 * time.Millisecond
	watchErrBackoffMult = 2
	watchErrMaxBackoff  = 5 * time.Second
)

// FsWatcher abstracts fsnotify so tests can inject events and errors.
type FsWatcher interface {
	Add(path string) error
	Remove(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher adapts *fsnotify.Watcher to the FsWatcher interface.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWatcher) Add(path string) error         { return f.w.Add(path) }
func (f *fsnotifyWatcher) Remove(path string) error      { return f.w.Remove(path) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}

	return &fsnotifyWatcher{w: w}, nil
}

// Watcher translates OS notifications into RawEvents on a single output
// channel. fsnotify watches are per-directory, so the watcher registers
// each game root and every profile subdirectory, and adds watches for
// directories that appear later.
type Watcher struct {
	out    chan RawEvent
	logger *slog.Logger

	watcherFactory func() (FsWatcher, error)
	fw             FsWatcher

	now func() time.Time
}

// NewWatcher creates a Watcher backed by fsnotify.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	w := &Watcher{
		out:            make(chan RawEvent, 64),
		logger:         logger,
		watcherFactory: newFsnotifyWatcher,
		now:            time.Now,
	}

	fw, err := w.watcherFactory()
	if err != nil {
		return nil, err
	}

	w.fw = fw

	return w, nil
}

// Events is the raw event stream consumed by the engine loop.
func (w *Watcher) Events() <-chan RawEvent {
	return w.out
}

// WatchRoot registers a watch on root and on each of its existing
// subdirectories. Missing roots are skipped: the game may not have been
// played yet.
func (w *Watcher) WatchRoot(root string) error {
	if _, err := os.Stat(root); err != nil {
		w.logger.Debug("watch root not present yet, skipping", slog.String("path", root))
		return nil
	}

	if err := w.fw.Add(root); err != nil {
		return fmt.Errorf("watch: adding root %q: %w", root, err)
	}

	entries, err := fsops.ListDir(root)
	if err != nil {
		return fmt.Errorf("watch: listing root %q: %w", root, err)
	}

	for _, e := range entries {
		if !e.IsDir || skipName(e.Name) {
			continue
		}

		if err := w.fw.Add(e.Path); err != nil {
			w.logger.Warn("adding watch on subdirectory",
				slog.String("path", e.Path), slog.String("error", err.Error()))
		}
	}

	return nil
}

// UnwatchRoot drops the watch on a root. Subdirectory watches are removed
// by the kernel when the directories themselves go away.
func (w *Watcher) UnwatchRoot(root string) {
	if err := w.fw.Remove(root); err != nil {
		w.logger.Debug("removing watch",
			slog.String("path", root), slog.String("error", err.Error()))
	}
}

// Run pumps fsnotify events into the RawEvent channel until ctx is
// canceled. The output channel is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.fw.Close()

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(ctx, ev)

			errBackoff = watchErrInitBackoff

		case err, ok := <-w.fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", err.Error()),
				slog.Duration("backoff", errBackoff))

			if sleepErr := sleepCtx(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff *= watchErrBackoffMult
			if errBackoff > watchErrMaxBackoff {
				errBackoff = watchErrMaxBackoff
			}
		}
	}
}

// handleEvent maps one fsnotify event onto the raw event stream and keeps
// directory watches current.
func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	// Mode changes carry no content information.
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	raw := RawEvent{Path: filepath.Clean(ev.Name), Time: w.now()}

	switch {
	case ev.Has(fsnotify.Create):
		raw.Op = OpCreate

		if info, err := os.Stat(raw.Path); err == nil && info.IsDir() {
			raw.IsDir = true

			// New profile directories need their own watch. Duplicate events
			// for contents created before the watch landed are absorbed by
			// the reconciler's idempotent apply.
			if err := w.fw.Add(raw.Path); err != nil {
				w.logger.Warn("adding watch on new directory",
					slog.String("path", raw.Path), slog.String("error", err.Error()))
			}
		}

	case ev.Has(fsnotify.Write):
		raw.Op = OpWrite

	case ev.Has(fsnotify.Rename):
		// fsnotify reports the old path of a rename; the new path arrives
		// as a separate Create in its destination directory.
		raw.Op = OpRenameFrom

	case ev.Has(fsnotify.Remove):
		raw.Op = OpRemove

	default:
		return
	}

	select {
	case w.out <- raw:
	case <-ctx.Done():
	}
}

// sleepCtx sleeps for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
