package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/tree"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <game> <profile> <name>",
		Short: "Snapshot the game's live save into a profile",
		Long: `Copy the game's current save-slot file into a profile as a new named
entry. The live save is left untouched.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				sv, err := s.Exec.Import(ctx, p.ID, args[2])
				if err != nil {
					return err
				}

				s.Sel.Select(tree.Ref{Kind: tree.KindSave, ID: sv.ID})

				statusf("Imported %s (%s) into %s/%s\n", sv.Name, formatSize(sv.Size), g.Name, p.Name)

				return nil
			})
		},
	}
}

func newLoadCmd() *cobra.Command {
	var random bool

	cmd := &cobra.Command{
		Use:   "load <game> <profile> [save]",
		Short: "Copy a save entry onto the game's live save slot",
		Long: `Copy a save entry from a profile onto the game's save slot, overwriting
the live save. With no entry named, the last-loaded entry is replayed
(or the most recently modified one when nothing was loaded yet). The
profile becomes the game's active profile.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				if random {
					sv, err := s.Exec.LoadRandom(ctx, p.ID)
					if err != nil {
						return err
					}

					statusf("Loaded %s/%s/%s (random)\n", g.Name, p.Name, sv.Name)

					return nil
				}

				var saveID tree.ID

				if len(args) == 3 {
					picked, err := resolveSave(s, g, p, args[2])
					if err != nil {
						return err
					}

					saveID = picked.ID
				}

				sv, err := s.Exec.Load(ctx, p.ID, saveID)
				if err != nil {
					return err
				}

				statusf("Loaded %s/%s/%s\n", g.Name, p.Name, sv.Name)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&random, "random", false, "load a uniformly random entry from the profile")

	return cmd
}

func newReplaceCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "replace <game> <profile> <save>",
		Short: "Overwrite a save entry with the game's live save",
		Long: `Copy the game's current save-slot file over an existing entry, the
inverse of load. The entry's previous contents are lost; pass --force
to confirm.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("replace overwrites the entry's contents; pass --force to confirm")
			}

			return withEngine(cmd, func(ctx context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				sv, err := resolveSave(s, g, p, args[2])
				if err != nil {
					return err
				}

				if err := s.Exec.Replace(ctx, sv.ID); err != nil {
					return err
				}

				statusf("Replaced %s/%s/%s with the live save\n", g.Name, p.Name, sv.Name)

				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm overwriting the entry")

	return cmd
}
