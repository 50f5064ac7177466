package engine

import (
	"context"
	"fmt"

	"github.com/savescum/savescum/internal/state"
	"github.com/savescum/savescum/internal/tree"
)

// syncStore reconciles the persisted state against the tree: rows for
// entities that no longer exist are deleted, everything else is upserted.
// The tree holds one user's games, so a full sweep stays cheap and makes
// persistence idempotent regardless of which path mutated the tree.
func (e *Engine) syncStore(ctx context.Context) error {
	if err := e.syncGames(ctx); err != nil {
		return fmt.Errorf("engine: syncing games: %w", err)
	}

	if err := e.syncSelection(ctx); err != nil {
		return fmt.Errorf("engine: syncing selection: %w", err)
	}

	return nil
}

func (e *Engine) syncGames(ctx context.Context) error {
	stored, err := e.store.ListGames(ctx)
	if err != nil {
		return err
	}

	for _, rec := range stored {
		if _, ok := e.tree.GameByName(rec.Name); !ok {
			if err := e.store.DeleteGame(ctx, rec.Name); err != nil {
				return err
			}
		}
	}

	for _, g := range e.tree.Games() {
		active := ""
		if p, ok := e.tree.ActiveProfile(g.ID); ok {
			active = p.Name
		}

		err := e.store.UpsertGame(ctx, state.GameRecord{
			Name:          g.Name,
			SaveSlot:      g.SaveSlot,
			Preset:        g.Preset,
			ActiveProfile: active,
		})
		if err != nil {
			return err
		}

		if err := e.syncProfiles(ctx, g.Name, g.ID); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) syncProfiles(ctx context.Context, gameName string, gameID tree.ID) error {
	g, err := e.tree.Game(gameID)
	if err != nil {
		return err
	}

	stored, err := e.store.ListProfiles(ctx, gameName)
	if err != nil {
		return err
	}

	for _, rec := range stored {
		if _, ok := e.tree.ProfileByName(gameID, rec.Name); !ok {
			if err := e.store.DeleteProfile(ctx, gameName, rec.Name); err != nil {
				return err
			}
		}
	}

	for _, p := range g.Profiles {
		err := e.store.UpsertProfile(ctx, state.ProfileRecord{
			GameName:   gameName,
			Name:       p.Name,
			LastLoaded: p.LastLoaded,
		})
		if err != nil {
			return err
		}

		// Only manual keys are worth keeping; automatic ordering is
		// derivable from names.
		var order []state.OrderRecord

		for _, s := range p.Saves {
			if s.Manual {
				order = append(order, state.OrderRecord{SaveName: s.Name, OrderKey: s.OrderKey})
			}
		}

		if err := e.store.ReplaceOrder(ctx, gameName, p.Name, order); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) syncSelection(ctx context.Context) error {
	var sel state.Selection

	if g, ok := e.sel.Game(); ok {
		sel.Game = g.Name
	}

	if p, ok := e.sel.Profile(); ok {
		sel.Profile = p.Name
	}

	return e.store.SetSelection(ctx, sel)
}
