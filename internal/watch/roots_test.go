package watch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/savescum/savescum/internal/tree"
)

func TestClassifyGamesRoot(t *testing.T) {
	rs := NewRootSet()
	rs.Add(Root{Kind: RootGames, Path: "/data"})

	tests := []struct {
		name string
		path string
		want Level
	}{
		{"root itself", "/data", LevelRoot},
		{"game depth", "/data/elden-ring", LevelGame},
		{"profile depth", "/data/elden-ring/ng+", LevelProfile},
		{"save depth", "/data/elden-ring/ng+/slot1.sav", LevelSave},
		{"below save depth", "/data/elden-ring/ng+/nested/deep.sav", LevelUnrelated},
		{"unclean path", "/data/elden-ring/./ng+", LevelProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := rs.Classify(tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.want, cls.Level)
		})
	}
}

func TestClassifyOutsideRoots(t *testing.T) {
	rs := NewRootSet()
	rs.Add(Root{Kind: RootGames, Path: "/data"})

	_, err := rs.Classify("/tmp/elsewhere/file.sav")
	require.ErrorIs(t, err, ErrOutsideRoot)

	require.False(t, rs.Contains("/tmp/elsewhere"))
	require.True(t, rs.Contains("/data/elden-ring"))
}

func TestClassifyStorageRoot(t *testing.T) {
	gameID := tree.NewID()

	rs := NewRootSet()
	rs.Add(Root{Kind: RootStorage, Path: "/saves/sekiro", GameID: gameID})

	cls, err := rs.Classify("/saves/sekiro")
	require.NoError(t, err)
	require.Equal(t, LevelGame, cls.Level)
	require.Equal(t, gameID, cls.GameID)

	cls, err = rs.Classify("/saves/sekiro/main")
	require.NoError(t, err)
	require.Equal(t, LevelProfile, cls.Level)

	cls, err = rs.Classify("/saves/sekiro/main/slot.sav")
	require.NoError(t, err)
	require.Equal(t, LevelSave, cls.Level)
}

// A game's storage root nested inside the data dir must win classification
// over the outer games root, carrying its game binding.
func TestClassifyDeepestRootWins(t *testing.T) {
	gameID := tree.NewID()

	rs := NewRootSet()
	rs.Add(Root{Kind: RootGames, Path: "/data"})
	rs.Add(Root{Kind: RootStorage, Path: "/data/elden-ring", GameID: gameID})

	cls, err := rs.Classify("/data/elden-ring/ng+")
	require.NoError(t, err)
	require.Equal(t, LevelProfile, cls.Level)
	require.Equal(t, RootStorage, cls.Root.Kind)
	require.Equal(t, gameID, cls.GameID)

	// Sibling games still classify against the outer root.
	cls, err = rs.Classify("/data/sekiro")
	require.NoError(t, err)
	require.Equal(t, LevelGame, cls.Level)
	require.Equal(t, RootGames, cls.Root.Kind)
	require.Empty(t, cls.GameID)
}

func TestOutermostSharedNamespace(t *testing.T) {
	rs := NewRootSet()
	rs.Add(Root{Kind: RootGames, Path: "/data"})
	rs.Add(Root{Kind: RootStorage, Path: "/data/elden-ring", GameID: "g1"})
	rs.Add(Root{Kind: RootStorage, Path: "/elsewhere/sekiro", GameID: "g2"})

	// Paths under two nested storage roots share the data dir namespace.
	outer, ok := rs.Outermost("/data/elden-ring/ng+")
	require.True(t, ok)
	require.Equal(t, "/data", outer.Path)

	outer, ok = rs.Outermost("/data/sekiro/ng+")
	require.True(t, ok)
	require.Equal(t, "/data", outer.Path)

	// A standalone custom root is its own namespace.
	outer, ok = rs.Outermost("/elsewhere/sekiro/ng+")
	require.True(t, ok)
	require.Equal(t, "/elsewhere/sekiro", outer.Path)

	_, ok = rs.Outermost("/tmp/stray")
	require.False(t, ok)
}

func TestRootSetRename(t *testing.T) {
	gameID := tree.NewID()

	rs := NewRootSet()
	rs.Add(Root{Kind: RootStorage, Path: "/data/old-name", GameID: gameID})

	rs.Rename("/data/old-name", "/data/new-name")

	cls, err := rs.Classify(filepath.Join("/data/new-name", "profile"))
	require.NoError(t, err)
	require.Equal(t, LevelProfile, cls.Level)
	require.Equal(t, gameID, cls.GameID)

	require.False(t, rs.Contains("/data/old-name/profile"))
}

func TestRootSetAddReplacesSamePath(t *testing.T) {
	rs := NewRootSet()
	rs.Add(Root{Kind: RootGames, Path: "/data"})
	rs.Add(Root{Kind: RootGames, Path: "/data"})

	require.Len(t, rs.Roots(), 1)

	rs.Remove("/data")
	require.Empty(t, rs.Roots())
}
