// Package command implements the save organizer's mutating operations.
// Every command follows the same protocol: validate inputs against the
// in-memory tree, arm suppression windows for the filesystem events the
// command is about to cause, perform the filesystem side effects, then
// apply the matching tree mutation directly. The watcher's echo of the
// side effect is consumed by the armed windows, so each command changes
// the tree exactly once.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/savescum/savescum/internal/tree"
	"github.com/savescum/savescum/internal/watch"
)

// ErrEmptyProfile is returned by load operations on a profile with no saves.
var ErrEmptyProfile = errors.New("command: profile has no saves")

// ErrInvalidName is returned when an entity name fails validation.
var ErrInvalidName = errors.New("command: invalid name")

// ErrInvalidSource is returned when a game's live save slot does not exist.
var ErrInvalidSource = errors.New("command: save slot source missing")

// PathError records one failed path inside a cascading operation.
type PathError struct {
	Path string
	Err  error
}

// PartialFailure aggregates per-path failures from a cascading delete.
// Entities whose files could not be removed stay in the tree; the rest are
// gone. The caller decides whether to retry.
type PartialFailure struct {
	Failures []PathError
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("command: %d of the affected paths failed", len(e.Failures))
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}

	return errs
}

// Executor runs commands against the tree and the filesystem. It is owned
// by the engine's event loop and is not safe for concurrent use.
type Executor struct {
	tree   *tree.Tree
	sup    *watch.Suppressor
	roots  *watch.RootSet
	logger *slog.Logger

	now func() time.Time
}

// NewExecutor creates an executor. The suppressor and root set must be the
// same instances the reconciler uses.
func NewExecutor(t *tree.Tree, sup *watch.Suppressor, roots *watch.RootSet, logger *slog.Logger) *Executor {
	return &Executor{
		tree:   t,
		sup:    sup,
		roots:  roots,
		logger: logger,
		now:    time.Now,
	}
}

// arm registers a suppression window when the path is inside the watched
// namespace. Paths outside it (live save slots) produce no watcher events.
func (e *Executor) arm(path string, op watch.Op) {
	if e.sup == nil || !e.roots.Contains(path) {
		return
	}

	e.sup.Arm(path, op, e.now())
}

// armRename arms both halves of an expected rename pair.
func (e *Executor) armRename(oldPath, newPath string) {
	e.arm(oldPath, watch.OpRenameFrom)
	e.arm(newPath, watch.OpCreate)
}
