package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/state"
	"github.com/savescum/savescum/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch storage directories and keep state in sync",
		Long: `Run the engine in the foreground, watching every game's storage root.
External filesystem activity (new saves, deletions, renames) is folded
into the organizer's state as it happens. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	ctx := shutdownContext(cmd.Context(), logger)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	// Install the change narrator on the loop goroutine so it is in place
	// once seeding completes. The same call doubles as a readiness barrier.
	err = eng.Do(ctx, func(_ context.Context, _ *engine.Session) error {
		eng.OnApplied = narrateChange
		return nil
	})
	if err != nil {
		<-runErr
		return err
	}

	statusf("Watching %d games under %s\n", len(resolvedCfg.Games), resolvedCfg.DataDir)

	err = <-runErr
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// narrateChange prints one reconciler-applied change to stdout.
func narrateChange(a watch.Applied) {
	switch a.Type {
	case watch.ChangeCreate:
		fmt.Printf("+ %s %s\n", a.Kind, appliedLabel(a))
	case watch.ChangeRemove:
		fmt.Printf("- %s %s\n", a.Kind, appliedLabel(a))
	case watch.ChangeMove:
		fmt.Printf("> %s %s -> %s\n", a.Kind, a.OldName, appliedLabel(a))
	case watch.ChangeModify:
		fmt.Printf("~ %s %s\n", a.Kind, appliedLabel(a))
	}
}

// appliedLabel renders the owning path of a change, e.g. "game/profile/save".
func appliedLabel(a watch.Applied) string {
	switch {
	case a.Profile != "":
		return a.Game + "/" + a.Profile + "/" + a.Name
	case a.Game != "":
		return a.Game + "/" + a.Name
	default:
		return a.Name
	}
}
