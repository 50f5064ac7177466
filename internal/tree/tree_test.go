package tree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestTree creates a tree with one game, one profile, and the given
// save names, mirroring the on-disk layout the watcher would discover.
func buildTestTree(t *testing.T, saveNames ...string) (*Tree, *Game, *Profile) {
	t.Helper()

	tr := New()

	g, err := tr.InsertGame(&Game{Name: "Elden Ring", Path: "/data/elden-ring", SaveSlot: "/saves/ER0000.sl2"})
	require.NoError(t, err)

	p, err := tr.InsertProfile(g.ID, &Profile{Name: "ng+", Path: "/data/elden-ring/ng+"})
	require.NoError(t, err)

	for _, name := range saveNames {
		_, err := tr.InsertSave(p.ID, &SaveEntry{Name: name, Path: filepath.Join(p.Path, name)})
		require.NoError(t, err)
	}

	return tr, g, p
}

func saveNames(p *Profile) []string {
	names := make([]string, 0, len(p.Saves))
	for _, s := range p.Saves {
		names = append(names, s.Name)
	}

	return names
}

func TestInsertRejectsSiblingNameConflict(t *testing.T) {
	tr, g, p := buildTestTree(t, "a.sav")

	_, err := tr.InsertGame(&Game{Name: "Elden Ring", Path: "/other"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = tr.InsertProfile(g.ID, &Profile{Name: "ng+", Path: "/data/elden-ring/ng+2"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = tr.InsertSave(p.ID, &SaveEntry{Name: "a.sav", Path: "/data/elden-ring/ng+/a.sav"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFindByPath(t *testing.T) {
	tr, g, p := buildTestTree(t, "a.sav")

	tests := []struct {
		name     string
		path     string
		wantKind Kind
		wantID   ID
		wantOK   bool
	}{
		{"game root", "/data/elden-ring", KindGame, g.ID, true},
		{"profile dir", "/data/elden-ring/ng+", KindProfile, p.ID, true},
		{"save file", "/data/elden-ring/ng+/a.sav", KindSave, p.Saves[0].ID, true},
		{"uncleaned path", "/data/elden-ring/ng+/../ng+/a.sav", KindSave, p.Saves[0].ID, true},
		{"unknown", "/data/elden-ring/ng+/missing.sav", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := tr.FindByPath(tt.path)
			require.Equal(t, tt.wantOK, ok)

			if ok {
				assert.Equal(t, tt.wantKind, ref.Kind)
				assert.Equal(t, tt.wantID, ref.ID)
			}
		})
	}
}

func TestRenameSavePreservesIdentity(t *testing.T) {
	tr, _, p := buildTestTree(t, "a.sav")

	id := p.Saves[0].ID
	require.NoError(t, tr.RenameSave(id, "boss.sav", "/data/elden-ring/ng+/boss.sav"))

	s, err := tr.Save(id)
	require.NoError(t, err)
	assert.Equal(t, "boss.sav", s.Name)

	ref, ok := tr.FindByPath("/data/elden-ring/ng+/boss.sav")
	require.True(t, ok)
	assert.Equal(t, id, ref.ID)

	_, ok = tr.FindByPath("/data/elden-ring/ng+/a.sav")
	assert.False(t, ok, "old path must be unindexed")
}

func TestRenameGameRebasesDescendantPaths(t *testing.T) {
	tr, g, p := buildTestTree(t, "a.sav")

	require.NoError(t, tr.RenameGame(g.ID, "ER", "/data/er"))

	assert.Equal(t, "/data/er/ng+", p.Path)
	assert.Equal(t, "/data/er/ng+/a.sav", p.Saves[0].Path)

	ref, ok := tr.FindByPath("/data/er/ng+/a.sav")
	require.True(t, ok)
	assert.Equal(t, p.Saves[0].ID, ref.ID)
}

func TestRemoveProfileCascades(t *testing.T) {
	tr, g, p := buildTestTree(t, "a.sav", "b.sav")

	require.NoError(t, tr.SetActiveProfile(g.ID, p.ID))

	saveID := p.Saves[0].ID

	_, err := tr.RemoveProfile(p.ID)
	require.NoError(t, err)

	_, err = tr.Save(saveID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, g.ActiveProfile, "active marker cleared with the profile")

	_, ok := tr.FindByPath("/data/elden-ring/ng+/a.sav")
	assert.False(t, ok)
}

func TestMoveSaveAcrossProfiles(t *testing.T) {
	tr, g, p := buildTestTree(t, "a.sav")

	dest, err := tr.InsertProfile(g.ID, &Profile{Name: "speedrun", Path: "/data/elden-ring/speedrun"})
	require.NoError(t, err)

	id := p.Saves[0].ID
	require.NoError(t, tr.MoveSave(id, dest.ID, "/data/elden-ring/speedrun/a.sav"))

	assert.Empty(t, p.Saves)
	require.Len(t, dest.Saves, 1)
	assert.Equal(t, id, dest.Saves[0].ID, "identity survives the move")
	assert.Equal(t, dest.ID, dest.Saves[0].ProfileID)
}

func TestReorderSaveScenario(t *testing.T) {
	// Filesystem order [a, b, c]; moving b after c yields [a, c, b].
	tr, _, p := buildTestTree(t, "a.sav", "b.sav", "c.sav")

	b := p.Saves[1]
	c := p.Saves[2]

	require.NoError(t, tr.PlaceAfter(p.ID, b.ID, c.ID))
	assert.Equal(t, []string{"a.sav", "c.sav", "b.sav"}, saveNames(p))
}

func TestPlaceAfterKeyStrictlyBetween(t *testing.T) {
	tr, _, p := buildTestTree(t, "a.sav", "b.sav", "c.sav", "d.sav")

	a := p.Saves[0]
	c := p.Saves[2]
	d := p.Saves[3]

	require.NoError(t, tr.PlaceAfter(p.ID, a.ID, c.ID))

	// Order is now [b, c, a, d]; a's key must lie strictly between c and d.
	assert.Greater(t, a.OrderKey, c.OrderKey)
	assert.Less(t, a.OrderKey, d.OrderKey)
}

func TestPlaceAfterLastSibling(t *testing.T) {
	tr, _, p := buildTestTree(t, "a.sav", "b.sav", "c.sav")

	a := p.Saves[0]
	c := p.Saves[2]

	require.NoError(t, tr.PlaceAfter(p.ID, a.ID, c.ID))
	assert.Equal(t, []string{"b.sav", "c.sav", "a.sav"}, saveNames(p))
}

func TestUnorderedEntriesSortAfterOrdered(t *testing.T) {
	tr, _, p := buildTestTree(t, "a.sav", "b.sav")

	// Materialize manual order by reordering, then discover a new entry.
	require.NoError(t, tr.ReorderSave(p.ID, p.Saves[1].ID, 0))
	require.Equal(t, []string{"b.sav", "a.sav"}, saveNames(p))

	_, err := tr.InsertSave(p.ID, &SaveEntry{Name: "0.sav", Path: "/data/elden-ring/ng+/0.sav"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.sav", "a.sav", "0.sav"}, saveNames(p),
		"filesystem-discovered entry sorts after manually ordered ones")
}

func TestReorderIsAmortizedViaGapKeys(t *testing.T) {
	tr, _, p := buildTestTree(t, "a.sav", "b.sav", "c.sav")

	// Repeated relative placement must keep producing valid keys.
	for i := 0; i < 64; i++ {
		first := p.Saves[0]
		second := p.Saves[1]
		require.NoError(t, tr.PlaceAfter(p.ID, first.ID, second.ID))
	}

	require.Len(t, p.Saves, 3)

	for i := 1; i < len(p.Saves); i++ {
		assert.Less(t, p.Saves[i-1].OrderKey, p.Saves[i].OrderKey)
	}
}

func TestActiveProfile(t *testing.T) {
	tr, g, p := buildTestTree(t)

	_, ok := tr.ActiveProfile(g.ID)
	assert.False(t, ok)

	require.NoError(t, tr.SetActiveProfile(g.ID, p.ID))

	got, ok := tr.ActiveProfile(g.ID)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)

	assert.ErrorIs(t, tr.SetActiveProfile(g.ID, "bogus"), ErrNotFound)
}
