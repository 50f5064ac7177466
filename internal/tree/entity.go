// Package tree implements the authoritative in-memory hierarchy of games,
// profiles, and save entries. The tree exclusively owns all entity objects;
// callers hold identities (IDs), never structural pointers, and re-resolve
// them through the tree's lookup index after every mutation.
package tree

import (
	"time"

	"github.com/google/uuid"
)

// ID is a stable entity identity. It survives renames and moves within a
// watch root, which is what lets the selection cursor stay anchored across
// tree reshuffling.
type ID string

// NewID returns a fresh entity identity.
func NewID() ID {
	return ID(uuid.NewString())
}

// Kind discriminates the three entity levels.
type Kind int

// Entity kinds, outermost first.
const (
	KindGame Kind = iota
	KindProfile
	KindSave
)

// String returns the lowercase kind name for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindGame:
		return "game"
	case KindProfile:
		return "profile"
	case KindSave:
		return "save"
	default:
		return "unknown"
	}
}

// Ref identifies an entity by kind and identity. It is the non-owning
// reference type handed to callers; resolve it with Tree.Resolve.
type Ref struct {
	Kind Kind
	ID   ID
}

// Game is a configured target application whose save files are organized.
// Path is the game's profile storage root (a watch root); SaveSlot is the
// live save location the target game reads from.
type Game struct {
	ID       ID
	Name     string
	Path     string
	SaveSlot string
	Preset   bool // built-in preset vs user-defined

	Profiles      []*Profile
	ActiveProfile ID // empty when no profile is active
}

// Profile is a named grouping of save entries under a game, backed by a
// subdirectory of the game's storage root.
type Profile struct {
	ID     ID
	Name   string
	GameID ID
	Path   string

	Saves []*SaveEntry

	// LastLoaded is the name of the save entry most recently copied to the
	// game's save slot. Replayed by `load` with no explicit entry argument.
	// A name rather than an ID so it survives restarts via the store.
	LastLoaded string
}

// SaveEntry is one tracked save file under a profile.
type SaveEntry struct {
	ID        ID
	Name      string
	ProfileID ID
	Path      string
	ModTime   time.Time
	Size      int64

	// Manual ordering. Entries with Manual set sort by OrderKey and precede
	// unordered entries, which sort among themselves by filesystem order.
	Manual   bool
	OrderKey int64
}
