package tree

import "errors"

// Sentinel errors returned by tree mutations. Callers branch on these with
// errors.Is; the wrapped message carries the entity context.
var (
	// ErrConflict indicates a name collision within a sibling set. The tree
	// never auto-renames — collision resolution is the command layer's job.
	ErrConflict = errors.New("tree: name conflict")

	// ErrNotFound indicates a stale entity reference: the ID or path does
	// not resolve to a live entity.
	ErrNotFound = errors.New("tree: entity not found")
)
