package watch

import (
	"path/filepath"
	"time"
)

// Debouncer coalesces changes for the same path arriving within a short
// window, absorbing editor-style write patterns (write temp, rename over
// target) without surfacing transient duplicate entities. Changes for the
// same path collapse to the last change kind; each new change restarts the
// path's window.
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingChange
	seq     uint64
}

type pendingChange struct {
	change   Change
	deadline time.Time
	seq      uint64 // arrival order for deterministic flushing
}

// NewDebouncer creates a debouncer with the given coalescing window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingChange),
	}
}

// Add buffers a change, collapsing any pending change for the same path.
// A move keyed by its destination also collapses a pending change for the
// source path, since the entity no longer lives there.
func (d *Debouncer) Add(ch Change, now time.Time) {
	key := filepath.Clean(ch.Path)

	if ch.Type == ChangeMove {
		delete(d.pending, filepath.Clean(ch.OldPath))
	}

	existing, ok := d.pending[key]
	if ok {
		existing.change = collapse(existing.change, ch)
		existing.deadline = now.Add(d.window)

		return
	}

	d.seq++
	d.pending[key] = &pendingChange{
		change:   ch,
		deadline: now.Add(d.window),
		seq:      d.seq,
	}
}

// Due removes and returns all changes whose window has elapsed, in arrival
// order.
func (d *Debouncer) Due(now time.Time) []Change {
	var due []*pendingChange

	for key, p := range d.pending {
		if !now.Before(p.deadline) {
			due = append(due, p)
			delete(d.pending, key)
		}
	}

	// Insertion sort by sequence; bursts are small.
	for i := 1; i < len(due); i++ {
		for j := i; j > 0 && due[j-1].seq > due[j].seq; j-- {
			due[j-1], due[j] = due[j], due[j-1]
		}
	}

	changes := make([]Change, len(due))
	for i, p := range due {
		changes[i] = p.change
	}

	return changes
}

// Next returns the earliest pending deadline, or false when nothing is
// buffered. The engine uses it to arm its debounce timer.
func (d *Debouncer) Next() (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)

	for _, p := range d.pending {
		if !found || p.deadline.Before(next) {
			next = p.deadline
			found = true
		}
	}

	return next, found
}

// Len returns the number of buffered changes.
func (d *Debouncer) Len() int {
	return len(d.pending)
}

// collapse merges a newer change into an older pending one for the same
// path: the last event kind wins, but a create followed by a modify stays a
// create (the entity has still never been surfaced).
func collapse(old, newer Change) Change {
	if old.Type == ChangeCreate && newer.Type == ChangeModify {
		newer.Type = ChangeCreate
	}

	if old.Type == ChangeMove && newer.Type == ChangeModify {
		// The move itself is still pending; keep the identity-preserving
		// move, the metadata refresh happens at apply time anyway.
		newer = old
	}

	return newer
}
