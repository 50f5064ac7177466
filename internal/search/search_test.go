package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/savescum/savescum/internal/tree"
)

func buildSearchTree(t *testing.T) *tree.Tree {
	t.Helper()

	tr := tree.New()

	er, err := tr.InsertGame(&tree.Game{Name: "elden-ring", Path: "/data/elden-ring"})
	require.NoError(t, err)

	sk, err := tr.InsertGame(&tree.Game{Name: "sekiro", Path: "/data/sekiro"})
	require.NoError(t, err)

	ng, err := tr.InsertProfile(er.ID, &tree.Profile{Name: "ng+", Path: "/data/elden-ring/ng+"})
	require.NoError(t, err)

	_, err = tr.InsertProfile(sk.ID, &tree.Profile{Name: "charmless", Path: "/data/sekiro/charmless"})
	require.NoError(t, err)

	for _, name := range []string{"malenia-attempt", "radahn-pre-fight"} {
		_, err = tr.InsertSave(ng.ID, &tree.SaveEntry{Name: name, Path: "/data/elden-ring/ng+/" + name})
		require.NoError(t, err)
	}

	return tr
}

func TestQueryRanksAcrossHierarchy(t *testing.T) {
	tr := buildSearchTree(t)

	results := Query(tr, "malenia")
	require.NotEmpty(t, results)
	require.Equal(t, "elden-ring/ng+/malenia-attempt", results[0].Label)
	require.Equal(t, tree.KindSave, results[0].Ref.Kind)
}

func TestQueryKindFilter(t *testing.T) {
	tr := buildSearchTree(t)

	results := Query(tr, "e", tree.KindGame)
	require.NotEmpty(t, results)

	for _, r := range results {
		require.Equal(t, tree.KindGame, r.Ref.Kind)
	}
}

func TestQueryNoMatch(t *testing.T) {
	tr := buildSearchTree(t)

	require.Empty(t, Query(tr, "zzzz-nothing"))

	_, ok := Best(tr, "zzzz-nothing")
	require.False(t, ok)
}

func TestBestMatch(t *testing.T) {
	tr := buildSearchTree(t)

	best, ok := Best(tr, "charmless", tree.KindProfile)
	require.True(t, ok)
	require.Equal(t, "sekiro/charmless", best.Label)
}
