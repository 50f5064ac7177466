package main

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/tree"
)

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List configured games",
		Args:  cobra.NoArgs,
		RunE:  runGames,
	}
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles <game>",
		Short: "List a game's profiles",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfiles,
	}
}

func newSavesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saves <game> <profile>",
		Short: "List a profile's save entries",
		Args:  cobra.ExactArgs(2),
		RunE:  runSaves,
	}
}

// gameJSON is the JSON shape for one game in `games --json` output.
type gameJSON struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	SaveSlot      string `json:"save_slot,omitempty"`
	Preset        bool   `json:"preset"`
	Profiles      int    `json:"profiles"`
	ActiveProfile string `json:"active_profile,omitempty"`
}

type profileJSON struct {
	Name       string `json:"name"`
	Saves      int    `json:"saves"`
	LastLoaded string `json:"last_loaded,omitempty"`
	Active     bool   `json:"active"`
}

type saveJSON struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
	Pinned   bool   `json:"pinned"`
}

func runGames(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
		games := s.Tree.Games()

		if flagJSON {
			out := make([]gameJSON, 0, len(games))
			for _, g := range games {
				out = append(out, gameJSON{
					Name:          g.Name,
					Path:          g.Path,
					SaveSlot:      g.SaveSlot,
					Preset:        g.Preset,
					Profiles:      len(g.Profiles),
					ActiveProfile: activeProfileName(s.Tree, g),
				})
			}

			return printJSON(out)
		}

		rows := make([][]string, 0, len(games))
		for _, g := range games {
			rows = append(rows, []string{
				g.Name,
				strconv.Itoa(len(g.Profiles)),
				orDash(activeProfileName(s.Tree, g)),
				g.Path,
			})
		}

		printTable(os.Stdout, tableHeaders([]string{"NAME", "PROFILES", "ACTIVE", "PATH"}), rows)

		return nil
	})
}

func runProfiles(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
		g, err := resolveGame(s, args[0])
		if err != nil {
			return err
		}

		if flagJSON {
			out := make([]profileJSON, 0, len(g.Profiles))
			for _, p := range g.Profiles {
				out = append(out, profileJSON{
					Name:       p.Name,
					Saves:      len(p.Saves),
					LastLoaded: p.LastLoaded,
					Active:     p.ID == g.ActiveProfile,
				})
			}

			return printJSON(out)
		}

		rows := make([][]string, 0, len(g.Profiles))
		for _, p := range g.Profiles {
			marker := ""
			if p.ID == g.ActiveProfile {
				marker = "*"
			}

			rows = append(rows, []string{
				p.Name,
				strconv.Itoa(len(p.Saves)),
				orDash(p.LastLoaded),
				marker,
			})
		}

		printTable(os.Stdout, tableHeaders([]string{"NAME", "SAVES", "LAST LOADED", "ACTIVE"}), rows)

		return nil
	})
}

func runSaves(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
		g, err := resolveGame(s, args[0])
		if err != nil {
			return err
		}

		p, err := resolveProfile(s, g, args[1])
		if err != nil {
			return err
		}

		if flagJSON {
			out := make([]saveJSON, 0, len(p.Saves))
			for _, sv := range p.Saves {
				out = append(out, saveJSON{
					Name:     sv.Name,
					Size:     sv.Size,
					Modified: sv.ModTime.Format("2006-01-02T15:04:05Z07:00"),
					Pinned:   sv.Manual,
				})
			}

			return printJSON(out)
		}

		rows := make([][]string, 0, len(p.Saves))
		for _, sv := range p.Saves {
			pinned := ""
			if sv.Manual {
				pinned = "*"
			}

			rows = append(rows, []string{
				sv.Name,
				formatSize(sv.Size),
				formatTime(sv.ModTime),
				pinned,
			})
		}

		printTable(os.Stdout, tableHeaders([]string{"NAME", "SIZE", "MODIFIED", "PINNED"}), rows)

		return nil
	})
}

// activeProfileName returns the name of g's active profile, or "".
func activeProfileName(t *tree.Tree, g *tree.Game) string {
	p, ok := t.ActiveProfile(g.ID)
	if !ok {
		return ""
	}

	return p.Name
}


func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
