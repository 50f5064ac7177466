package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/savescum/savescum/internal/tree"
)

// ErrOutsideRoot is returned when a path is not lexically contained in any
// watch root. Such paths are a classification error, never silently
// ignored: an entity cannot exist outside the watched namespace.
var ErrOutsideRoot = errors.New("watch: path outside all watch roots")

// RootKind distinguishes the two root shapes.
type RootKind int

const (
	// RootGames is the profiles root (data dir): its immediate children
	// are game directories, grandchildren profiles, great-grandchildren
	// save files.
	RootGames RootKind = iota

	// RootStorage is one game's storage directory: children are profiles,
	// grandchildren save files. Used for games with a custom storage_dir.
	RootStorage
)

// Root is one actively monitored directory tree.
type Root struct {
	Kind RootKind
	Path string
	// GameID identifies the owning game for RootStorage roots.
	GameID tree.ID
}

// Level is the entity level a classified path sits at.
type Level int

const (
	// LevelGame is a game storage directory.
	LevelGame Level = iota
	// LevelProfile is a profile directory.
	LevelProfile
	// LevelSave is a save file.
	LevelSave
	// LevelRoot is a watch root itself.
	LevelRoot
	// LevelUnrelated is a path inside a root but below the save level
	// (nested deeper than the hierarchy tracks).
	LevelUnrelated
)

// Class is the result of classifying a path against the root set.
type Class struct {
	Level Level
	Root  Root
	// GameID is the owning game when determinable from the root alone
	// (always set for RootStorage roots).
	GameID tree.ID
}

// RootSet is the registry of watch roots. Owned by the event loop.
type RootSet struct {
	roots []Root
}

// NewRootSet returns an empty root set.
func NewRootSet() *RootSet {
	return &RootSet{}
}

// Add registers a root. The path is cleaned.
func (rs *RootSet) Add(r Root) {
	r.Path = filepath.Clean(r.Path)

	for i, existing := range rs.roots {
		if existing.Path == r.Path {
			rs.roots[i] = r
			return
		}
	}

	rs.roots = append(rs.roots, r)
}

// Remove unregisters the root at path.
func (rs *RootSet) Remove(path string) {
	path = filepath.Clean(path)

	for i, r := range rs.roots {
		if r.Path == path {
			rs.roots = append(rs.roots[:i], rs.roots[i+1:]...)
			return
		}
	}
}

// Rename updates a root's path in place, preserving kind and game binding.
func (rs *RootSet) Rename(oldPath, newPath string) {
	oldPath = filepath.Clean(oldPath)

	for i, r := range rs.roots {
		if r.Path == oldPath {
			rs.roots[i].Path = filepath.Clean(newPath)
			return
		}
	}
}

// Roots returns the registered roots.
func (rs *RootSet) Roots() []Root {
	return rs.roots
}

// Contains reports whether path lies inside (or is) any watch root.
func (rs *RootSet) Contains(path string) bool {
	_, _, err := rs.match(path)
	return err == nil
}

// Classify maps an absolute path to its entity level. The most specific
// (deepest) containing root wins, so a game's storage root inside the data
// dir classifies its children as profiles, not as games.
func (rs *RootSet) Classify(path string) (Class, error) {
	root, rel, err := rs.match(path)
	if err != nil {
		return Class{}, err
	}

	cls := Class{Root: root, GameID: root.GameID}

	if rel == "." {
		cls.Level = LevelRoot
		if root.Kind == RootStorage {
			// A storage root is the game directory itself.
			cls.Level = LevelGame
		}

		return cls, nil
	}

	depth := strings.Count(rel, string(filepath.Separator)) + 1

	switch root.Kind {
	case RootGames:
		switch depth {
		case 1:
			cls.Level = LevelGame
		case 2:
			cls.Level = LevelProfile
		case 3:
			cls.Level = LevelSave
		default:
			cls.Level = LevelUnrelated
		}
	case RootStorage:
		switch depth {
		case 1:
			cls.Level = LevelProfile
		case 2:
			cls.Level = LevelSave
		default:
			cls.Level = LevelUnrelated
		}
	}

	return cls, nil
}

// Outermost returns the shallowest root containing path. Rename pairing
// keys on it: storage roots nested inside the data dir still form one
// namespace, so a directory moved between two games pairs into a single
// identity-preserving move.
func (rs *RootSet) Outermost(path string) (Root, bool) {
	path = filepath.Clean(path)

	var (
		best  Root
		found bool
	)

	for _, r := range rs.roots {
		rel, err := filepath.Rel(r.Path, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}

		if !found || len(r.Path) < len(best.Path) {
			best, found = r, true
		}
	}

	return best, found
}

// match finds the deepest root containing path and the path's position
// relative to it.
func (rs *RootSet) match(path string) (Root, string, error) {
	path = filepath.Clean(path)

	var (
		best    Root
		bestRel string
		found   bool
	)

	for _, r := range rs.roots {
		rel, err := filepath.Rel(r.Path, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}

		if !found || len(r.Path) > len(best.Path) {
			best, bestRel, found = r, rel, true
		}
	}

	if !found {
		return Root{}, "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	return best, bestRel, nil
}
