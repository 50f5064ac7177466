package tree

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Tree is the in-memory entity hierarchy plus its lookup indexes. It is not
// safe for concurrent use — the engine's single-writer event loop is the only
// mutator, which is the core correctness mechanism that makes locking here
// unnecessary.
type Tree struct {
	games []*Game

	byID   map[ID]Ref
	byPath map[string]Ref
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		byID:   make(map[ID]Ref),
		byPath: make(map[string]Ref),
	}
}

// Games returns the ordered game list. The returned slice is owned by the
// tree; callers must not mutate it.
func (t *Tree) Games() []*Game {
	return t.games
}

// Game resolves a game by identity.
func (t *Tree) Game(id ID) (*Game, error) {
	for _, g := range t.games {
		if g.ID == id {
			return g, nil
		}
	}

	return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
}

// Profile resolves a profile by identity.
func (t *Tree) Profile(id ID) (*Profile, error) {
	for _, g := range t.games {
		for _, p := range g.Profiles {
			if p.ID == id {
				return p, nil
			}
		}
	}

	return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
}

// Save resolves a save entry by identity.
func (t *Tree) Save(id ID) (*SaveEntry, error) {
	for _, g := range t.games {
		for _, p := range g.Profiles {
			for _, s := range p.Saves {
				if s.ID == id {
					return s, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("save %s: %w", id, ErrNotFound)
}

// Resolve returns true if the referenced entity still exists.
func (t *Tree) Resolve(ref Ref) bool {
	_, ok := t.byID[ref.ID]
	return ok
}

// FindByPath maps an absolute filesystem path to the entity backed by it.
func (t *Tree) FindByPath(path string) (Ref, bool) {
	ref, ok := t.byPath[filepath.Clean(path)]
	return ref, ok
}

// GameByName finds a game by its user-visible name.
func (t *Tree) GameByName(name string) (*Game, bool) {
	for _, g := range t.games {
		if g.Name == name {
			return g, true
		}
	}

	return nil, false
}

// ProfileByName finds a profile by name under a game.
func (t *Tree) ProfileByName(gameID ID, name string) (*Profile, bool) {
	g, err := t.Game(gameID)
	if err != nil {
		return nil, false
	}

	for _, p := range g.Profiles {
		if p.Name == name {
			return p, true
		}
	}

	return nil, false
}

// SaveByName finds a save entry by name under a profile.
func (t *Tree) SaveByName(profileID ID, name string) (*SaveEntry, bool) {
	p, err := t.Profile(profileID)
	if err != nil {
		return nil, false
	}

	for _, s := range p.Saves {
		if s.Name == name {
			return s, true
		}
	}

	return nil, false
}

// ActiveProfile returns the game's active profile, if one is designated.
func (t *Tree) ActiveProfile(gameID ID) (*Profile, bool) {
	g, err := t.Game(gameID)
	if err != nil || g.ActiveProfile == "" {
		return nil, false
	}

	for _, p := range g.Profiles {
		if p.ID == g.ActiveProfile {
			return p, true
		}
	}

	return nil, false
}

// SetActiveProfile designates the game's active profile. Pass an empty ID to
// clear the marker. At most one profile per game is active.
func (t *Tree) SetActiveProfile(gameID, profileID ID) error {
	g, err := t.Game(gameID)
	if err != nil {
		return err
	}

	if profileID != "" {
		if _, err := t.Profile(profileID); err != nil {
			return err
		}
	}

	g.ActiveProfile = profileID

	return nil
}

// InsertGame adds a game to the tree. A missing ID is assigned. Returns the
// inserted game so callers can re-anchor selection on its identity.
func (t *Tree) InsertGame(g *Game) (*Game, error) {
	if _, ok := t.GameByName(g.Name); ok {
		return nil, fmt.Errorf("game %q: %w", g.Name, ErrConflict)
	}

	if g.ID == "" {
		g.ID = NewID()
	}

	t.games = append(t.games, g)
	sort.Slice(t.games, func(i, j int) bool { return t.games[i].Name < t.games[j].Name })

	ref := Ref{Kind: KindGame, ID: g.ID}
	t.byID[g.ID] = ref
	t.byPath[filepath.Clean(g.Path)] = ref

	return g, nil
}

// InsertProfile adds a profile under its owning game.
func (t *Tree) InsertProfile(gameID ID, p *Profile) (*Profile, error) {
	g, err := t.Game(gameID)
	if err != nil {
		return nil, err
	}

	if _, ok := t.ProfileByName(gameID, p.Name); ok {
		return nil, fmt.Errorf("profile %q under game %q: %w", p.Name, g.Name, ErrConflict)
	}

	if p.ID == "" {
		p.ID = NewID()
	}

	p.GameID = gameID

	g.Profiles = append(g.Profiles, p)
	sort.Slice(g.Profiles, func(i, j int) bool { return g.Profiles[i].Name < g.Profiles[j].Name })

	ref := Ref{Kind: KindProfile, ID: p.ID}
	t.byID[p.ID] = ref
	t.byPath[filepath.Clean(p.Path)] = ref

	return p, nil
}

// InsertSave adds a save entry under its owning profile and re-sorts the
// profile's save list.
func (t *Tree) InsertSave(profileID ID, s *SaveEntry) (*SaveEntry, error) {
	p, err := t.Profile(profileID)
	if err != nil {
		return nil, err
	}

	if _, ok := t.SaveByName(profileID, s.Name); ok {
		return nil, fmt.Errorf("save %q under profile %q: %w", s.Name, p.Name, ErrConflict)
	}

	if s.ID == "" {
		s.ID = NewID()
	}

	s.ProfileID = profileID

	p.Saves = append(p.Saves, s)
	sortSaves(p)

	ref := Ref{Kind: KindSave, ID: s.ID}
	t.byID[s.ID] = ref
	t.byPath[filepath.Clean(s.Path)] = ref

	return s, nil
}

// RemoveGame deletes a game and all its descendants from the tree.
func (t *Tree) RemoveGame(id ID) (*Game, error) {
	for i, g := range t.games {
		if g.ID != id {
			continue
		}

		for _, p := range g.Profiles {
			t.dropProfileIndexes(p)
		}

		t.games = append(t.games[:i], t.games[i+1:]...)
		t.dropIndexes(g.ID, g.Path)

		return g, nil
	}

	return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
}

// RemoveProfile deletes a profile and its save entries from the tree.
func (t *Tree) RemoveProfile(id ID) (*Profile, error) {
	p, err := t.Profile(id)
	if err != nil {
		return nil, err
	}

	g, err := t.Game(p.GameID)
	if err != nil {
		return nil, err
	}

	for i, candidate := range g.Profiles {
		if candidate.ID == id {
			g.Profiles = append(g.Profiles[:i], g.Profiles[i+1:]...)
			break
		}
	}

	if g.ActiveProfile == id {
		g.ActiveProfile = ""
	}

	t.dropProfileIndexes(p)

	return p, nil
}

// RemoveSave deletes a save entry from the tree.
func (t *Tree) RemoveSave(id ID) (*SaveEntry, error) {
	s, err := t.Save(id)
	if err != nil {
		return nil, err
	}

	p, err := t.Profile(s.ProfileID)
	if err != nil {
		return nil, err
	}

	for i, candidate := range p.Saves {
		if candidate.ID == id {
			p.Saves = append(p.Saves[:i], p.Saves[i+1:]...)
			break
		}
	}

	if p.LastLoaded == s.Name {
		p.LastLoaded = ""
	}

	t.dropIndexes(s.ID, s.Path)

	return s, nil
}

// RenameGame updates a game's name and storage root, rebasing every
// descendant path under the new root. Identity is preserved.
func (t *Tree) RenameGame(id ID, newName, newPath string) error {
	g, err := t.Game(id)
	if err != nil {
		return err
	}

	if other, ok := t.GameByName(newName); ok && other.ID != id {
		return fmt.Errorf("game %q: %w", newName, ErrConflict)
	}

	delete(t.byPath, filepath.Clean(g.Path))

	g.Name = newName
	g.Path = newPath
	t.byPath[filepath.Clean(newPath)] = Ref{Kind: KindGame, ID: g.ID}

	sort.Slice(t.games, func(i, j int) bool { return t.games[i].Name < t.games[j].Name })

	for _, p := range g.Profiles {
		t.rebaseProfile(p, filepath.Join(newPath, p.Name))
	}

	return nil
}

// RenameProfile updates a profile's name and directory, rebasing its save
// paths. Identity is preserved.
func (t *Tree) RenameProfile(id ID, newName, newPath string) error {
	p, err := t.Profile(id)
	if err != nil {
		return err
	}

	if other, ok := t.ProfileByName(p.GameID, newName); ok && other.ID != id {
		return fmt.Errorf("profile %q: %w", newName, ErrConflict)
	}

	p.Name = newName
	t.rebaseProfile(p, newPath)

	if g, gerr := t.Game(p.GameID); gerr == nil {
		sort.Slice(g.Profiles, func(i, j int) bool { return g.Profiles[i].Name < g.Profiles[j].Name })
	}

	return nil
}

// RenameSave updates a save entry's name and path in place. Identity is
// preserved, which keeps an anchored selection cursor on the entry.
func (t *Tree) RenameSave(id ID, newName, newPath string) error {
	s, err := t.Save(id)
	if err != nil {
		return err
	}

	if other, ok := t.SaveByName(s.ProfileID, newName); ok && other.ID != id {
		return fmt.Errorf("save %q: %w", newName, ErrConflict)
	}

	delete(t.byPath, filepath.Clean(s.Path))

	oldName := s.Name
	s.Name = newName
	s.Path = newPath
	t.byPath[filepath.Clean(newPath)] = Ref{Kind: KindSave, ID: s.ID}

	if p, perr := t.Profile(s.ProfileID); perr == nil {
		if p.LastLoaded == oldName {
			p.LastLoaded = newName
		}

		sortSaves(p)
	}

	return nil
}

// MoveSave reparents a save entry to another profile, preserving identity.
// The destination must not already hold a same-named entry.
func (t *Tree) MoveSave(id, destProfileID ID, newPath string) error {
	s, err := t.Save(id)
	if err != nil {
		return err
	}

	dest, err := t.Profile(destProfileID)
	if err != nil {
		return err
	}

	if other, ok := t.SaveByName(destProfileID, s.Name); ok && other.ID != id {
		return fmt.Errorf("save %q under profile %q: %w", s.Name, dest.Name, ErrConflict)
	}

	src, err := t.Profile(s.ProfileID)
	if err != nil {
		return err
	}

	for i, candidate := range src.Saves {
		if candidate.ID == id {
			src.Saves = append(src.Saves[:i], src.Saves[i+1:]...)
			break
		}
	}

	if src.LastLoaded == s.Name {
		src.LastLoaded = ""
	}

	delete(t.byPath, filepath.Clean(s.Path))

	s.ProfileID = destProfileID
	s.Path = newPath
	s.Manual = false
	s.OrderKey = 0

	dest.Saves = append(dest.Saves, s)
	sortSaves(dest)

	t.byPath[filepath.Clean(newPath)] = Ref{Kind: KindSave, ID: s.ID}

	return nil
}

// MoveProfile reparents a profile to another game, preserving its identity
// and the identity of every save under it. The destination game must not
// already hold a same-named profile.
func (t *Tree) MoveProfile(id, destGameID ID, newName, newPath string) error {
	p, err := t.Profile(id)
	if err != nil {
		return err
	}

	dest, err := t.Game(destGameID)
	if err != nil {
		return err
	}

	if other, ok := t.ProfileByName(destGameID, newName); ok && other.ID != id {
		return fmt.Errorf("profile %q under game %q: %w", newName, dest.Name, ErrConflict)
	}

	src, err := t.Game(p.GameID)
	if err != nil {
		return err
	}

	for i, candidate := range src.Profiles {
		if candidate.ID == id {
			src.Profiles = append(src.Profiles[:i], src.Profiles[i+1:]...)
			break
		}
	}

	if src.ActiveProfile == id {
		src.ActiveProfile = ""
	}

	p.GameID = destGameID
	p.Name = newName
	t.rebaseProfile(p, newPath)

	dest.Profiles = append(dest.Profiles, p)
	sort.Slice(dest.Profiles, func(i, j int) bool { return dest.Profiles[i].Name < dest.Profiles[j].Name })

	return nil
}

// rebaseProfile points a profile at a new directory and rewrites every save
// path under it.
func (t *Tree) rebaseProfile(p *Profile, newPath string) {
	delete(t.byPath, filepath.Clean(p.Path))
	p.Path = newPath
	t.byPath[filepath.Clean(newPath)] = Ref{Kind: KindProfile, ID: p.ID}

	for _, s := range p.Saves {
		delete(t.byPath, filepath.Clean(s.Path))
		s.Path = filepath.Join(newPath, s.Name)
		t.byPath[filepath.Clean(s.Path)] = Ref{Kind: KindSave, ID: s.ID}
	}
}

// dropProfileIndexes removes a profile and its saves from both indexes.
func (t *Tree) dropProfileIndexes(p *Profile) {
	for _, s := range p.Saves {
		t.dropIndexes(s.ID, s.Path)
	}

	t.dropIndexes(p.ID, p.Path)
}

func (t *Tree) dropIndexes(id ID, path string) {
	delete(t.byID, id)
	delete(t.byPath, filepath.Clean(path))
}
