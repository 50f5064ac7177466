// Package engine ties the organizer together: a single-writer event loop
// that owns the entity tree, the selection cursor, the reconciler, and the
// command executor. The filesystem watcher and CLI commands communicate
// with the loop over channels; nothing else touches the tree.
package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/savescum/savescum/internal/command"
	"github.com/savescum/savescum/internal/config"
	"github.com/savescum/savescum/internal/nav"
	"github.com/savescum/savescum/internal/state"
	"github.com/savescum/savescum/internal/tree"
	"github.com/savescum/savescum/internal/watch"
)

// safetyScanInterval is how often the full rescan runs as a net under the
// watcher, catching events the OS dropped.
const safetyScanInterval = 5 * time.Minute

// Notifier is the watcher surface the engine drives. *watch.Watcher
// implements it; tests inject channel-backed fakes.
type Notifier interface {
	Events() <-chan watch.RawEvent
	WatchRoot(root string) error
	UnwatchRoot(root string)
	Run(ctx context.Context) error
}

// Session is the view of engine state handed to a command closure. It is
// only valid inside the closure, on the loop goroutine.
type Session struct {
	Tree *tree.Tree
	Exec *command.Executor
	Sel  *nav.Selection
}

type request struct {
	fn   func(context.Context, *Session) error
	done chan error
}

// Engine is the event loop and its owned state.
type Engine struct {
	cfg    *config.Resolved
	store  *state.Store
	logger *slog.Logger

	tree     *tree.Tree
	sel      *nav.Selection
	roots    *watch.RootSet
	rec      *watch.Reconciler
	exec     *command.Executor
	notifier Notifier

	requests chan request
	watched  map[string]bool

	// OnApplied receives every reconciler-applied change. Set it before
	// Run, or from inside a Do closure; the loop goroutine reads it.
	// Used by watch mode to narrate external activity.
	OnApplied func(watch.Applied)
}

// New builds an engine with a live fsnotify watcher.
func New(cfg *config.Resolved, store *state.Store, logger *slog.Logger) (*Engine, error) {
	notifier, err := watch.NewWatcher(logger)
	if err != nil {
		return nil, err
	}

	return newWithNotifier(cfg, store, notifier, logger), nil
}

func newWithNotifier(cfg *config.Resolved, store *state.Store, notifier Notifier, logger *slog.Logger) *Engine {
	t := tree.New()
	roots := watch.NewRootSet()

	sup := watch.NewSuppressor(cfg.Watch.SuppressionTTL)
	deb := watch.NewDebouncer(cfg.Watch.DebounceWindow)
	rec := watch.NewReconciler(t, roots, sup, deb, cfg.Watch.RenameGrace, logger)

	return &Engine{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		tree:     t,
		sel:      nav.New(t),
		roots:    roots,
		rec:      rec,
		exec:     command.NewExecutor(t, sup, roots, logger),
		notifier: notifier,
		requests: make(chan request),
		watched:  make(map[string]bool),
	}
}

// Run seeds the tree, starts the watcher, and serves the event loop until
// ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.seed(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.notifier.Run(ctx) })
	g.Go(func() error { return e.loop(ctx) })

	return g.Wait()
}

// Do runs a command closure on the loop goroutine and returns its error.
// Tree state observed inside the closure is consistent; pointers must not
// escape it.
func (e *Engine) Do(ctx context.Context, fn func(context.Context, *Session) error) error {
	req := request{fn: fn, done: make(chan error, 1)}

	select {
	case e.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) loop(ctx context.Context) error {
	timer := time.NewTimer(safetyScanInterval)
	defer timer.Stop()

	safety := time.NewTicker(safetyScanInterval)
	defer safety.Stop()

	session := &Session{Tree: e.tree, Exec: e.exec, Sel: e.sel}

	for {
		e.armTimer(timer)

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-e.notifier.Events():
			if !ok {
				return nil
			}

			e.rec.Observe(ev)

		case <-timer.C:
			e.flush(ctx)

		case <-safety.C:
			if err := e.rec.ScanAll(); err != nil {
				e.logger.Warn("safety rescan", slog.String("error", err.Error()))
			}

			e.afterMutation(ctx)

		case req := <-e.requests:
			err := req.fn(ctx, session)
			if err == nil {
				e.afterMutation(ctx)
			}

			req.done <- err
		}
	}
}

// armTimer points the flush timer at the reconciler's next deadline.
func (e *Engine) armTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	if next, ok := e.rec.NextDeadline(); ok {
		timer.Reset(time.Until(next))
		return
	}

	timer.Reset(safetyScanInterval)
}

// flush applies due reconciler changes and propagates the fallout.
func (e *Engine) flush(ctx context.Context) {
	applied := e.rec.Tick(time.Now())
	if len(applied) == 0 {
		return
	}

	for _, a := range applied {
		e.logger.Debug("applied external change",
			slog.String("type", a.Type.String()),
			slog.String("kind", a.Kind.String()),
			slog.String("name", a.Name))

		if e.OnApplied != nil {
			e.OnApplied(a)
		}
	}

	e.afterMutation(ctx)
}

// afterMutation runs after any tree change: repair the cursor, reconcile
// watch registrations, and persist.
func (e *Engine) afterMutation(ctx context.Context) {
	e.sel.Reanchor()
	e.syncWatches()

	if err := e.syncStore(ctx); err != nil {
		e.logger.Warn("persisting state", slog.String("error", err.Error()))
	}
}

// syncWatches aligns the notifier's registrations with the root set.
func (e *Engine) syncWatches() {
	current := make(map[string]bool, len(e.roots.Roots()))

	for _, r := range e.roots.Roots() {
		current[r.Path] = true

		if e.watched[r.Path] {
			continue
		}

		if err := e.notifier.WatchRoot(r.Path); err != nil {
			e.logger.Warn("watching root",
				slog.String("path", r.Path), slog.String("error", err.Error()))

			continue
		}

		e.watched[r.Path] = true
	}

	for path := range e.watched {
		if !current[path] {
			e.notifier.UnwatchRoot(path)
			delete(e.watched, path)
		}
	}
}
