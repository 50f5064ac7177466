package command

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/savescum/savescum/internal/config"
	"github.com/savescum/savescum/internal/fsops"
	"github.com/savescum/savescum/internal/tree"
	"github.com/savescum/savescum/internal/watch"
)

// checkName wraps config's name rules in the command error taxonomy.
func checkName(name string) error {
	if err := config.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	return nil
}

// CreateGame registers a game, creates its storage directory, and starts
// classifying paths under it.
func (e *Executor) CreateGame(name, saveSlot, storageDir string, preset bool) (*tree.Game, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	// Validate before touching the filesystem: a conflicting name must not
	// leave a stray storage directory behind.
	if _, ok := e.tree.GameByName(name); ok {
		return nil, fmt.Errorf("%w: game %q", tree.ErrConflict, name)
	}

	storageDir = filepath.Clean(storageDir)

	e.arm(storageDir, watch.OpCreate)

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("command: creating game directory: %w", err)
	}

	g, err := e.tree.InsertGame(&tree.Game{
		Name:     name,
		Path:     storageDir,
		SaveSlot: saveSlot,
		Preset:   preset,
	})
	if err != nil {
		return nil, err
	}

	e.roots.Add(watch.Root{Kind: watch.RootStorage, Path: storageDir, GameID: g.ID})

	e.logger.Info("created game",
		slog.String("name", name), slog.String("storage_dir", storageDir))

	return g, nil
}

// CreateProfile creates a profile directory under the game's storage root.
func (e *Executor) CreateProfile(gameID tree.ID, name string) (*tree.Profile, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	g, err := e.tree.Game(gameID)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(g.Path, name)

	if _, ok := e.tree.ProfileByName(gameID, name); ok {
		return nil, fmt.Errorf("%w: profile %q", tree.ErrConflict, name)
	}

	e.arm(path, watch.OpCreate)

	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("command: creating profile directory: %w", err)
	}

	p, err := e.tree.InsertProfile(gameID, &tree.Profile{Name: name, Path: path})
	if err != nil {
		return nil, err
	}

	e.logger.Info("created profile",
		slog.String("game", g.Name), slog.String("name", name))

	return p, nil
}

// Rename renames any entity on disk and in the tree, preserving identity.
func (e *Executor) Rename(ref tree.Ref, newName string) error {
	if err := checkName(newName); err != nil {
		return err
	}

	switch ref.Kind {
	case tree.KindGame:
		return e.renameGame(ref.ID, newName)
	case tree.KindProfile:
		return e.renameProfile(ref.ID, newName)
	case tree.KindSave:
		return e.renameSave(ref.ID, newName)
	}

	return fmt.Errorf("%w: unknown entity kind", tree.ErrNotFound)
}

func (e *Executor) renameGame(id tree.ID, newName string) error {
	g, err := e.tree.Game(id)
	if err != nil {
		return err
	}

	if _, ok := e.tree.GameByName(newName); ok {
		return fmt.Errorf("%w: game %q", tree.ErrConflict, newName)
	}

	oldPath := g.Path
	newPath := filepath.Join(filepath.Dir(oldPath), newName)

	e.armRename(oldPath, newPath)

	if err := fsops.Rename(oldPath, newPath); err != nil {
		return err
	}

	if err := e.tree.RenameGame(id, newName, newPath); err != nil {
		return err
	}

	e.roots.Rename(oldPath, newPath)

	e.logger.Info("renamed game", slog.String("from", filepath.Base(oldPath)), slog.String("to", newName))

	return nil
}

func (e *Executor) renameProfile(id tree.ID, newName string) error {
	p, err := e.tree.Profile(id)
	if err != nil {
		return err
	}

	if _, ok := e.tree.ProfileByName(p.GameID, newName); ok {
		return fmt.Errorf("%w: profile %q", tree.ErrConflict, newName)
	}

	oldPath := p.Path
	newPath := filepath.Join(filepath.Dir(oldPath), newName)

	e.armRename(oldPath, newPath)

	if err := fsops.Rename(oldPath, newPath); err != nil {
		return err
	}

	if err := e.tree.RenameProfile(id, newName, newPath); err != nil {
		return err
	}

	e.logger.Info("renamed profile", slog.String("to", newName))

	return nil
}

func (e *Executor) renameSave(id tree.ID, newName string) error {
	s, err := e.tree.Save(id)
	if err != nil {
		return err
	}

	if _, ok := e.tree.SaveByName(s.ProfileID, newName); ok {
		return fmt.Errorf("%w: save %q", tree.ErrConflict, newName)
	}

	oldPath := s.Path
	newPath := filepath.Join(filepath.Dir(oldPath), newName)

	e.armRename(oldPath, newPath)

	if err := fsops.Rename(oldPath, newPath); err != nil {
		return err
	}

	if err := e.tree.RenameSave(id, newName, newPath); err != nil {
		return err
	}

	e.logger.Info("renamed save", slog.String("to", newName))

	return nil
}

// Move reparents a save into destProfileID. When afterID names a sibling in
// the destination, the save is ordered directly after it; otherwise it
// keeps automatic ordering.
func (e *Executor) Move(saveID, destProfileID tree.ID, afterID tree.ID) error {
	s, err := e.tree.Save(saveID)
	if err != nil {
		return err
	}

	dest, err := e.tree.Profile(destProfileID)
	if err != nil {
		return err
	}

	if s.ProfileID != destProfileID {
		if _, ok := e.tree.SaveByName(destProfileID, s.Name); ok {
			return fmt.Errorf("%w: save %q in profile %q", tree.ErrConflict, s.Name, dest.Name)
		}

		oldPath := s.Path
		newPath := filepath.Join(dest.Path, s.Name)

		e.armRename(oldPath, newPath)

		if err := fsops.Rename(oldPath, newPath); err != nil {
			return err
		}

		if err := e.tree.MoveSave(saveID, destProfileID, newPath); err != nil {
			return err
		}

		e.logger.Info("moved save",
			slog.String("name", s.Name), slog.String("to_profile", dest.Name))
	}

	if afterID != "" {
		if err := e.tree.PlaceAfter(destProfileID, saveID, afterID); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes an entity and its files. Profile and game deletes cascade
// child-first; paths that fail to delete keep their entities in the tree
// and surface in an aggregate *PartialFailure.
func (e *Executor) Delete(ref tree.Ref) error {
	switch ref.Kind {
	case tree.KindSave:
		return e.deleteSave(ref.ID)
	case tree.KindProfile:
		return e.deleteProfile(ref.ID)
	case tree.KindGame:
		return e.deleteGame(ref.ID)
	}

	return fmt.Errorf("%w: unknown entity kind", tree.ErrNotFound)
}

func (e *Executor) deleteSave(id tree.ID) error {
	s, err := e.tree.Save(id)
	if err != nil {
		return err
	}

	e.arm(s.Path, watch.OpRemove)

	if err := fsops.RemoveFile(s.Path); err != nil {
		return err
	}

	if _, err := e.tree.RemoveSave(id); err != nil {
		return err
	}

	e.logger.Info("deleted save", slog.String("name", s.Name))

	return nil
}

// deleteProfileContents removes a profile's save files one at a time,
// dropping each successfully deleted save from the tree and collecting
// failures. Returns the failures.
func (e *Executor) deleteProfileContents(p *tree.Profile) []PathError {
	var failures []PathError

	// Snapshot: RemoveSave mutates p.Saves.
	saves := append([]*tree.SaveEntry(nil), p.Saves...)

	for _, s := range saves {
		e.arm(s.Path, watch.OpRemove)

		if err := fsops.RemoveFile(s.Path); err != nil {
			failures = append(failures, PathError{Path: s.Path, Err: err})

			e.logger.Warn("delete cascade: save file not removed",
				slog.String("path", s.Path), slog.String("error", err.Error()))

			continue
		}

		if _, err := e.tree.RemoveSave(s.ID); err != nil {
			failures = append(failures, PathError{Path: s.Path, Err: err})
		}
	}

	return failures
}

func (e *Executor) deleteProfile(id tree.ID) error {
	p, err := e.tree.Profile(id)
	if err != nil {
		return err
	}

	failures := e.deleteProfileContents(p)
	if len(failures) > 0 {
		// The profile stays with its surviving saves.
		return &PartialFailure{Failures: failures}
	}

	e.arm(p.Path, watch.OpRemove)

	if err := fsops.RemoveDir(p.Path); err != nil {
		return &PartialFailure{Failures: []PathError{{Path: p.Path, Err: err}}}
	}

	if _, err := e.tree.RemoveProfile(id); err != nil {
		return err
	}

	e.logger.Info("deleted profile", slog.String("name", p.Name))

	return nil
}

func (e *Executor) deleteGame(id tree.ID) error {
	g, err := e.tree.Game(id)
	if err != nil {
		return err
	}

	var failures []PathError

	profiles := append([]*tree.Profile(nil), g.Profiles...)

	for _, p := range profiles {
		pf := e.deleteProfileContents(p)
		if len(pf) > 0 {
			failures = append(failures, pf...)
			continue
		}

		e.arm(p.Path, watch.OpRemove)

		if err := fsops.RemoveDir(p.Path); err != nil {
			failures = append(failures, PathError{Path: p.Path, Err: err})
			continue
		}

		if _, err := e.tree.RemoveProfile(p.ID); err != nil {
			failures = append(failures, PathError{Path: p.Path, Err: err})
		}
	}

	if len(failures) > 0 {
		return &PartialFailure{Failures: failures}
	}

	e.arm(g.Path, watch.OpRemove)

	if err := fsops.RemoveDir(g.Path); err != nil {
		return &PartialFailure{Failures: []PathError{{Path: g.Path, Err: err}}}
	}

	if _, err := e.tree.RemoveGame(id); err != nil {
		return err
	}

	e.roots.Remove(g.Path)

	e.logger.Info("deleted game", slog.String("name", g.Name))

	return nil
}
