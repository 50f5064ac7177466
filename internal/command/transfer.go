package command

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/savescum/savescum/internal/fsops"
	"github.com/savescum/savescum/internal/tree"
	"github.com/savescum/savescum/internal/watch"
)

// Import copies the game's live save slot into the profile as a new named
// backup and returns the created entry.
func (e *Executor) Import(ctx context.Context, profileID tree.ID, name string) (*tree.SaveEntry, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	p, err := e.tree.Profile(profileID)
	if err != nil {
		return nil, err
	}

	g, err := e.tree.Game(p.GameID)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(g.SaveSlot); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSource, g.SaveSlot)
		}

		return nil, fmt.Errorf("command: checking save slot: %w", statErr)
	}

	if _, ok := e.tree.SaveByName(profileID, name); ok {
		return nil, fmt.Errorf("%w: save %q", tree.ErrConflict, name)
	}

	dst := filepath.Join(p.Path, name)

	// The copy lands via rename, which the watcher reports as a create.
	e.arm(dst, watch.OpCreate)

	if err := fsops.CopyFile(ctx, g.SaveSlot, dst); err != nil {
		return nil, err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("command: stat imported save: %w", err)
	}

	s, err := e.tree.InsertSave(profileID, &tree.SaveEntry{
		Name:    name,
		Path:    dst,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("imported save",
		slog.String("game", g.Name), slog.String("profile", p.Name), slog.String("name", name))

	return s, nil
}

// Load copies a backup over the game's live save slot and marks the profile
// active. An empty saveID replays the profile's last-loaded backup, falling
// back to the most recently modified one.
func (e *Executor) Load(ctx context.Context, profileID, saveID tree.ID) (*tree.SaveEntry, error) {
	p, err := e.tree.Profile(profileID)
	if err != nil {
		return nil, err
	}

	g, err := e.tree.Game(p.GameID)
	if err != nil {
		return nil, err
	}

	s, err := e.resolveLoadSave(p, saveID)
	if err != nil {
		return nil, err
	}

	return e.loadSave(ctx, g, p, s)
}

// LoadRandom loads a uniformly random backup from the profile.
func (e *Executor) LoadRandom(ctx context.Context, profileID tree.ID) (*tree.SaveEntry, error) {
	p, err := e.tree.Profile(profileID)
	if err != nil {
		return nil, err
	}

	g, err := e.tree.Game(p.GameID)
	if err != nil {
		return nil, err
	}

	if len(p.Saves) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyProfile, p.Name)
	}

	s := p.Saves[rand.IntN(len(p.Saves))]

	return e.loadSave(ctx, g, p, s)
}

// resolveLoadSave picks the save to load: an explicit one, or for an empty
// saveID the last-loaded backup, or the most recently modified one when no
// load happened yet.
func (e *Executor) resolveLoadSave(p *tree.Profile, saveID tree.ID) (*tree.SaveEntry, error) {
	if saveID != "" {
		s, err := e.tree.Save(saveID)
		if err != nil {
			return nil, err
		}

		if s.ProfileID != p.ID {
			return nil, fmt.Errorf("%w: save not in profile %q", tree.ErrNotFound, p.Name)
		}

		return s, nil
	}

	if len(p.Saves) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyProfile, p.Name)
	}

	if p.LastLoaded != "" {
		if s, ok := e.tree.SaveByName(p.ID, p.LastLoaded); ok {
			return s, nil
		}
	}

	latest := p.Saves[0]
	for _, s := range p.Saves[1:] {
		if s.ModTime.After(latest.ModTime) {
			latest = s
		}
	}

	return latest, nil
}

func (e *Executor) loadSave(ctx context.Context, g *tree.Game, p *tree.Profile, s *tree.SaveEntry) (*tree.SaveEntry, error) {
	if err := os.MkdirAll(filepath.Dir(g.SaveSlot), 0o755); err != nil {
		return nil, fmt.Errorf("command: preparing save slot directory: %w", err)
	}

	// Live slots normally sit outside the watched namespace, but arming is
	// containment-checked either way.
	e.arm(g.SaveSlot, watch.OpCreate)

	if err := fsops.CopyFile(ctx, s.Path, g.SaveSlot); err != nil {
		return nil, err
	}

	p.LastLoaded = s.Name

	if err := e.tree.SetActiveProfile(g.ID, p.ID); err != nil {
		return nil, err
	}

	e.logger.Info("loaded save",
		slog.String("game", g.Name), slog.String("profile", p.Name), slog.String("name", s.Name))

	return s, nil
}

// Replace overwrites an existing backup with the game's current live save.
func (e *Executor) Replace(ctx context.Context, saveID tree.ID) error {
	s, err := e.tree.Save(saveID)
	if err != nil {
		return err
	}

	p, err := e.tree.Profile(s.ProfileID)
	if err != nil {
		return err
	}

	g, err := e.tree.Game(p.GameID)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(g.SaveSlot); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInvalidSource, g.SaveSlot)
		}

		return fmt.Errorf("command: checking save slot: %w", statErr)
	}

	e.arm(s.Path, watch.OpCreate)

	if err := fsops.CopyFile(ctx, g.SaveSlot, s.Path); err != nil {
		return err
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return fmt.Errorf("command: stat replaced save: %w", err)
	}

	s.ModTime = info.ModTime()
	s.Size = info.Size()

	e.logger.Info("replaced save",
		slog.String("profile", p.Name), slog.String("name", s.Name))

	return nil
}
