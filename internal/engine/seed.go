package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/savescum/savescum/internal/tree"
	"github.com/savescum/savescum/internal/watch"
)

// seed rebuilds the in-memory tree at startup: games come from config and
// the state store, profiles and saves from scanning their directories, and
// ordering, markers, and the selection from the store.
func (e *Engine) seed(ctx context.Context) error {
	e.roots.Add(watch.Root{Kind: watch.RootGames, Path: e.cfg.DataDir})

	for _, rg := range e.cfg.Games {
		g, err := e.tree.InsertGame(&tree.Game{
			Name:     rg.Name,
			Path:     rg.StorageDir,
			SaveSlot: rg.SaveSlot,
			Preset:   rg.Preset,
		})
		if err != nil {
			return fmt.Errorf("engine: seeding configured game %q: %w", rg.Name, err)
		}

		e.roots.Add(watch.Root{Kind: watch.RootStorage, Path: g.Path, GameID: g.ID})
	}

	if err := e.seedFromStore(ctx); err != nil {
		return err
	}

	// Discover what is actually on disk. Profiles seeded from the store
	// whose directories vanished while we were not running fall out here.
	if err := e.rec.ScanAll(); err != nil {
		e.logger.Warn("initial scan", slog.String("error", err.Error()))
	}

	if err := e.restoreOrder(ctx); err != nil {
		return err
	}

	e.restoreSelection(ctx)
	e.syncWatches()

	if err := e.syncStore(ctx); err != nil {
		return err
	}

	e.logger.Info("engine seeded", slog.Int("games", len(e.tree.Games())))

	return nil
}

// seedFromStore inserts persisted games the config does not name (games
// created at runtime live in the default location under the data dir) and
// restores per-entity markers.
func (e *Engine) seedFromStore(ctx context.Context) error {
	records, err := e.store.ListGames(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		g, ok := e.tree.GameByName(rec.Name)
		if !ok {
			g, err = e.tree.InsertGame(&tree.Game{
				Name:     rec.Name,
				Path:     filepath.Join(e.cfg.DataDir, rec.Name),
				SaveSlot: rec.SaveSlot,
				Preset:   rec.Preset,
			})
			if err != nil {
				return fmt.Errorf("engine: seeding stored game %q: %w", rec.Name, err)
			}

			e.roots.Add(watch.Root{Kind: watch.RootStorage, Path: g.Path, GameID: g.ID})
		}

		profiles, err := e.store.ListProfiles(ctx, rec.Name)
		if err != nil {
			return err
		}

		for _, pr := range profiles {
			p, err := e.tree.InsertProfile(g.ID, &tree.Profile{
				Name:       pr.Name,
				Path:       filepath.Join(g.Path, pr.Name),
				LastLoaded: pr.LastLoaded,
			})
			if err != nil {
				e.logger.Warn("seeding stored profile",
					slog.String("game", rec.Name), slog.String("name", pr.Name),
					slog.String("error", err.Error()))

				continue
			}

			if rec.ActiveProfile == pr.Name {
				if err := e.tree.SetActiveProfile(g.ID, p.ID); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// restoreOrder reapplies persisted manual ordering to the scanned saves.
func (e *Engine) restoreOrder(ctx context.Context) error {
	for _, g := range e.tree.Games() {
		for _, p := range g.Profiles {
			records, err := e.store.ListOrder(ctx, g.Name, p.Name)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				continue
			}

			keys := make(map[string]int64, len(records))
			for _, rec := range records {
				keys[rec.SaveName] = rec.OrderKey
			}

			if err := e.tree.RestoreOrder(p.ID, keys); err != nil {
				return err
			}
		}
	}

	return nil
}

// restoreSelection re-anchors the cursor where the user left it. A stale
// selection (entities gone) degrades silently to the default.
func (e *Engine) restoreSelection(ctx context.Context) {
	sel, err := e.store.GetSelection(ctx)
	if err != nil {
		e.logger.Warn("restoring selection", slog.String("error", err.Error()))
		return
	}

	g, ok := e.tree.GameByName(sel.Game)
	if !ok {
		return
	}

	e.sel.Select(tree.Ref{Kind: tree.KindGame, ID: g.ID})

	if p, ok := e.tree.ProfileByName(g.ID, sel.Profile); ok {
		e.sel.Select(tree.Ref{Kind: tree.KindProfile, ID: p.ID})
	}
}
