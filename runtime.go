package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/search"
	"github.com/savescum/savescum/internal/state"
	"github.com/savescum/savescum/internal/tree"
)

// withEngine spins up a fully-seeded engine, runs fn on its loop goroutine,
// and tears the engine down again. Every one-shot command goes through here
// so that disk truth, persisted state, and the command all see the same
// tree.
func withEngine(cmd *cobra.Command, fn func(context.Context, *engine.Session) error) error {
	logger := buildLogger()

	store, err := state.NewStore(resolvedCfg.StateDB, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.New(resolvedCfg, store, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	opErr := make(chan error, 1)
	go func() { opErr <- eng.Do(ctx, fn) }()

	select {
	case err := <-opErr:
		cancel()
		<-runErr

		return err

	case err := <-runErr:
		// The engine stopped before the command completed: seeding failed
		// or the watcher died. Unblock the pending Do and surface the
		// engine's error.
		cancel()
		<-opErr

		if err != nil {
			return err
		}

		return fmt.Errorf("engine stopped unexpectedly")
	}
}

// resolveGame finds a game by exact name, falling back to fuzzy matching.
func resolveGame(s *engine.Session, name string) (*tree.Game, error) {
	if g, ok := s.Tree.GameByName(name); ok {
		return g, nil
	}

	if res, ok := search.Best(s.Tree, name, tree.KindGame); ok {
		if g, err := s.Tree.Game(res.Ref.ID); err == nil {
			return g, nil
		}
	}

	return nil, fmt.Errorf("no game matches %q", name)
}

// resolveProfile finds a profile of g by exact name, falling back to fuzzy
// matching scoped to g's profiles.
func resolveProfile(s *engine.Session, g *tree.Game, name string) (*tree.Profile, error) {
	if p, ok := s.Tree.ProfileByName(g.ID, name); ok {
		return p, nil
	}

	for _, res := range search.Query(s.Tree, g.Name+"/"+name, tree.KindProfile) {
		p, err := s.Tree.Profile(res.Ref.ID)
		if err == nil && p.GameID == g.ID {
			return p, nil
		}
	}

	return nil, fmt.Errorf("no profile of %s matches %q", g.Name, name)
}

// resolveSave finds a save entry of p by exact name, falling back to fuzzy
// matching scoped to p's saves.
func resolveSave(s *engine.Session, g *tree.Game, p *tree.Profile, name string) (*tree.SaveEntry, error) {
	if sv, ok := s.Tree.SaveByName(p.ID, name); ok {
		return sv, nil
	}

	for _, res := range search.Query(s.Tree, g.Name+"/"+p.Name+"/"+name, tree.KindSave) {
		sv, err := s.Tree.Save(res.Ref.ID)
		if err == nil && sv.ProfileID == p.ID {
			return sv, nil
		}
	}

	return nil, fmt.Errorf("no save of %s/%s matches %q", g.Name, p.Name, name)
}
