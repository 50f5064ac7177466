package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/tree"
)

func newCreateGameCmd() *cobra.Command {
	var (
		saveSlot   string
		storageDir string
	)

	cmd := &cobra.Command{
		Use:   "create-game <name>",
		Short: "Register a game and create its storage directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := s.Exec.CreateGame(args[0], saveSlot, storageDir, false)
				if err != nil {
					return err
				}

				s.Sel.Select(tree.Ref{Kind: tree.KindGame, ID: g.ID})

				statusf("Created game %s at %s\n", g.Name, g.Path)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&saveSlot, "save-slot", "", "live save path the game reads from")
	cmd.Flags().StringVar(&storageDir, "storage-dir", "", "storage root override (default <data-dir>/<name>)")

	return cmd
}

func newCreateProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-profile <game> <name>",
		Short: "Create a profile under a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := s.Exec.CreateProfile(g.ID, args[1])
				if err != nil {
					return err
				}

				s.Sel.Select(tree.Ref{Kind: tree.KindProfile, ID: p.ID})

				statusf("Created profile %s/%s\n", g.Name, p.Name)

				return nil
			})
		},
	}
}

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a game, profile, or save entry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "game <game> <new-name>",
		Short: "Rename a game and its storage directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				if err := s.Exec.Rename(tree.Ref{Kind: tree.KindGame, ID: g.ID}, args[1]); err != nil {
					return err
				}

				statusf("Renamed game to %s\n", args[1])

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "profile <game> <profile> <new-name>",
		Short: "Rename a profile and its directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				if err := s.Exec.Rename(tree.Ref{Kind: tree.KindProfile, ID: p.ID}, args[2]); err != nil {
					return err
				}

				statusf("Renamed profile to %s/%s\n", g.Name, args[2])

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <game> <profile> <save> <new-name>",
		Short: "Rename a save entry and its file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
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

				if err := s.Exec.Rename(tree.Ref{Kind: tree.KindSave, ID: sv.ID}, args[3]); err != nil {
					return err
				}

				statusf("Renamed save to %s/%s/%s\n", g.Name, p.Name, args[3])

				return nil
			})
		},
	})

	return cmd
}

func newMoveCmd() *cobra.Command {
	var after string

	cmd := &cobra.Command{
		Use:   "move <game> <from-profile> <save> <to-profile>",
		Short: "Move a save entry to another profile",
		Long: `Move a save entry to another profile of the same game. The entry keeps
its identity and manual ordering position unless --after places it
explicitly.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				from, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				sv, err := resolveSave(s, g, from, args[2])
				if err != nil {
					return err
				}

				to, err := resolveProfile(s, g, args[3])
				if err != nil {
					return err
				}

				var afterID tree.ID

				if after != "" {
					anchor, err := resolveSave(s, g, to, after)
					if err != nil {
						return err
					}

					afterID = anchor.ID
				}

				if err := s.Exec.Move(sv.ID, to.ID, afterID); err != nil {
					return err
				}

				s.Sel.Select(tree.Ref{Kind: tree.KindSave, ID: sv.ID})

				statusf("Moved %s to %s/%s\n", sv.Name, g.Name, to.Name)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "place the entry after this save in the destination")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a game, profile, or save entry",
	}

	cmd.PersistentFlags().BoolVarP(&recursive, "recursive", "r", false, "confirm deletion of non-empty profiles and games")

	cmd.AddCommand(&cobra.Command{
		Use:   "save <game> <profile> <save>",
		Short: "Delete a save entry and its file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
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

				if err := s.Exec.Delete(tree.Ref{Kind: tree.KindSave, ID: sv.ID}); err != nil {
					return err
				}

				statusf("Deleted %s/%s/%s\n", g.Name, p.Name, sv.Name)

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "profile <game> <profile>",
		Short: "Delete a profile and all its save entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				p, err := resolveProfile(s, g, args[1])
				if err != nil {
					return err
				}

				if len(p.Saves) > 0 && !recursive {
					return fmt.Errorf("profile %s/%s has %d saves; use --recursive to delete them", g.Name, p.Name, len(p.Saves))
				}

				if err := s.Exec.Delete(tree.Ref{Kind: tree.KindProfile, ID: p.ID}); err != nil {
					return err
				}

				statusf("Deleted profile %s/%s\n", g.Name, p.Name)

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "game <game>",
		Short: "Delete a game and its whole storage subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				g, err := resolveGame(s, args[0])
				if err != nil {
					return err
				}

				if len(g.Profiles) > 0 && !recursive {
					return fmt.Errorf("game %s has %d profiles; use --recursive to delete them", g.Name, len(g.Profiles))
				}

				if err := s.Exec.Delete(tree.Ref{Kind: tree.KindGame, ID: g.ID}); err != nil {
					return err
				}

				statusf("Deleted game %s\n", g.Name)

				return nil
			})
		},
	})

	return cmd
}
