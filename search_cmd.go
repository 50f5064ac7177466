package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/savescum/savescum/internal/engine"
	"github.com/savescum/savescum/internal/search"
	"github.com/savescum/savescum/internal/tree"
)

func newSearchCmd() *cobra.Command {
	var kindFilter string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search games, profiles, and save entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKindFilter(kindFilter)
			if err != nil {
				return err
			}

			return withEngine(cmd, func(_ context.Context, s *engine.Session) error {
				results := search.Query(s.Tree, args[0], kinds...)

				if flagJSON {
					type resultJSON struct {
						Kind  string `json:"kind"`
						Label string `json:"label"`
						Score int    `json:"score"`
					}

					out := make([]resultJSON, 0, len(results))
					for _, r := range results {
						out = append(out, resultJSON{Kind: r.Ref.Kind.String(), Label: r.Label, Score: r.Score})
					}

					return printJSON(out)
				}

				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Ref.Kind.String(), r.Label, strconv.Itoa(r.Score)})
				}

				printTable(os.Stdout, tableHeaders([]string{"KIND", "MATCH", "SCORE"}), rows)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFilter, "kind", "", "restrict results to one kind: game, profile, or save")

	return cmd
}

// parseKindFilter maps the --kind flag value to a kind list for the search
// index. An empty value means all kinds.
func parseKindFilter(value string) ([]tree.Kind, error) {
	switch value {
	case "":
		return nil, nil
	case "game":
		return []tree.Kind{tree.KindGame}, nil
	case "profile":
		return []tree.Kind{tree.KindProfile}, nil
	case "save":
		return []tree.Kind{tree.KindSave}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q (want game, profile, or save)", value)
	}
}
