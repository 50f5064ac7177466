package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/savescum/savescum/internal/fsops"
	"github.com/savescum/savescum/internal/tree"
)

// ScanAll rescans every game's subtree. Per-game failures are aggregated so
// one unreadable directory does not abort the rest of the scan.
func (r *Reconciler) ScanAll() error {
	var errs []error

	for _, g := range r.tree.Games() {
		if err := r.ScanGame(g.ID); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ScanGame reconciles one game's profiles and saves against the filesystem.
// When the game directory cannot be listed the in-memory subtree is left
// intact: a transient I/O failure must not cascade into mass removals.
func (r *Reconciler) ScanGame(gameID tree.ID) error {
	g, err := r.tree.Game(gameID)
	if err != nil {
		return fmt.Errorf("watch: scanning game: %w", err)
	}

	entries, err := fsops.ListDir(g.Path)
	if err != nil {
		return fmt.Errorf("watch: listing game directory %q: %w", g.Path, err)
	}

	visited := make(map[string]bool, len(entries))

	for _, e := range entries {
		if !e.IsDir || skipName(e.Name) {
			continue
		}

		visited[e.Name] = true

		p, ok := r.tree.ProfileByName(gameID, e.Name)
		if !ok {
			p, err = r.tree.InsertProfile(gameID, &tree.Profile{Name: e.Name, Path: e.Path})
			if err != nil {
				r.logger.Warn("scan: inserting profile",
					slog.String("path", e.Path), slog.String("error", err.Error()))

				continue
			}

			r.logger.Debug("scan: discovered profile", slog.String("path", e.Path))
		}

		if err := r.scanProfileSaves(p); err != nil {
			r.logger.Warn("scan: listing profile directory",
				slog.String("path", p.Path), slog.String("error", err.Error()))
		}
	}

	// Profiles with no backing directory are gone. The listing above
	// succeeded, so these are confirmed removals rather than I/O noise.
	var orphans []tree.ID

	for _, p := range g.Profiles {
		if !visited[p.Name] {
			orphans = append(orphans, p.ID)
		}
	}

	for _, id := range orphans {
		if _, err := r.tree.RemoveProfile(id); err != nil {
			r.logger.Warn("scan: removing orphaned profile", slog.String("error", err.Error()))
		}
	}

	return nil
}

// scanProfileSaves brings one profile's save entries in line with its
// directory contents. On listing failure the profile's saves are untouched.
func (r *Reconciler) scanProfileSaves(p *tree.Profile) error {
	entries, err := fsops.ListDir(p.Path)
	if err != nil {
		return err
	}

	visited := make(map[string]bool, len(entries))

	for _, e := range entries {
		if e.IsDir || skipName(e.Name) {
			continue
		}

		visited[e.Name] = true

		if s, ok := r.tree.SaveByName(p.ID, e.Name); ok {
			s.ModTime = e.ModTime
			s.Size = e.Size

			continue
		}

		_, err := r.tree.InsertSave(p.ID, &tree.SaveEntry{
			Name:    e.Name,
			Path:    e.Path,
			ModTime: e.ModTime,
			Size:    e.Size,
		})
		if err != nil {
			r.logger.Warn("scan: inserting save",
				slog.String("path", e.Path), slog.String("error", err.Error()))
		}
	}

	var orphans []tree.ID

	for _, s := range p.Saves {
		if !visited[s.Name] {
			orphans = append(orphans, s.ID)
		}
	}

	for _, id := range orphans {
		if _, err := r.tree.RemoveSave(id); err != nil {
			r.logger.Warn("scan: removing orphaned save", slog.String("error", err.Error()))
		}
	}

	return nil
}

// skipName filters hidden files and in-flight partial copies out of scans.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || fsops.IsPartial(name)
}
