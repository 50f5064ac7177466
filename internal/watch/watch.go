// Package watch implements the filesystem watcher reconciler: it consumes
// raw filesystem notifications for all watched roots, classifies them
// against the entity hierarchy, coalesces bursts, drops self-caused echoes
// of executor commands, and applies minimal idempotent diffs to the entity
// tree. All reconciler state is owned by the engine's event loop; nothing
// here is safe for concurrent use except the notifier, which only writes to
// its output channel.
package watch

import "time"

// Op is the raw notification kind delivered by the OS watch layer.
type Op int

// Raw operation kinds. OpRenameFrom is a rename reported on the old path;
// the destination, when inside a watched root, arrives as a separate
// OpCreate that the reconciler pairs with it.
const (
	OpCreate Op = iota
	OpRemove
	OpRenameFrom
	OpWrite
)

// String returns the lowercase op name for logs.
func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRenameFrom:
		return "rename-from"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// RawEvent is one normalized filesystem notification.
type RawEvent struct {
	Op   Op
	Path string
	// IsDir is best-effort: true when the path was known to be a directory
	// at notification time. Remove/rename-from events carry false because
	// the path is already gone.
	IsDir bool
	Time  time.Time
}

// ChangeType classifies a coalesced change ready to apply to the tree.
type ChangeType int

// Coalesced change kinds. A ChangeMove is a paired rename within the
// watched namespace and preserves entity identity.
const (
	ChangeCreate ChangeType = iota
	ChangeRemove
	ChangeMove
	ChangeModify
)

// String returns the lowercase change name for logs.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreate:
		return "create"
	case ChangeRemove:
		return "remove"
	case ChangeMove:
		return "move"
	case ChangeModify:
		return "modify"
	default:
		return "unknown"
	}
}

// Change is one classified, debounced filesystem change.
type Change struct {
	Type    ChangeType
	Path    string
	OldPath string // set for ChangeMove
	IsDir   bool
}
