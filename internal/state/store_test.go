package state

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens an on-disk store in a temp dir. On-disk rather than
// :memory: so the WAL pragma path is exercised too.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := NewStore(filepath.Join(t.TempDir(), "state.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestGameRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er", SaveSlot: "/saves/er.sl2"}))
	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "hk", SaveSlot: "/saves/hk.dat", Preset: true}))

	// Upsert updates in place.
	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er", SaveSlot: "/saves/er.sl2", ActiveProfile: "ng+"}))

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "er", games[0].Name)
	assert.Equal(t, "ng+", games[0].ActiveProfile)
	assert.True(t, games[1].Preset)
}

func TestProfileCascadeOnGameDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er"}))
	require.NoError(t, s.UpsertProfile(ctx, ProfileRecord{GameName: "er", Name: "ng+"}))
	require.NoError(t, s.ReplaceOrder(ctx, "er", "ng+", []OrderRecord{{SaveName: "a.sav", OrderKey: 1024}}))

	require.NoError(t, s.DeleteGame(ctx, "er"))

	profiles, err := s.ListProfiles(ctx, "er")
	require.NoError(t, err)
	assert.Empty(t, profiles)

	order, err := s.ListOrder(ctx, "er", "ng+")
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestRenameGameRewritesChildRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er"}))
	require.NoError(t, s.UpsertProfile(ctx, ProfileRecord{GameName: "er", Name: "ng+", LastLoaded: "a.sav"}))
	require.NoError(t, s.ReplaceOrder(ctx, "er", "ng+", []OrderRecord{{SaveName: "a.sav", OrderKey: 1024}}))

	require.NoError(t, s.RenameGame(ctx, "er", "elden-ring"))

	profiles, err := s.ListProfiles(ctx, "elden-ring")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "a.sav", profiles[0].LastLoaded)

	order, err := s.ListOrder(ctx, "elden-ring", "ng+")
	require.NoError(t, err)
	require.Len(t, order, 1)
	assert.Equal(t, int64(1024), order[0].OrderKey)
}

func TestRenameProfileUpdatesActiveMarker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er", ActiveProfile: "ng+"}))
	require.NoError(t, s.UpsertProfile(ctx, ProfileRecord{GameName: "er", Name: "ng+"}))

	require.NoError(t, s.RenameProfile(ctx, "er", "ng+", "journey2"))

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "journey2", games[0].ActiveProfile)
}

func TestOrderReplaceAndSaveLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGame(ctx, GameRecord{Name: "er"}))
	require.NoError(t, s.UpsertProfile(ctx, ProfileRecord{GameName: "er", Name: "ng+"}))

	require.NoError(t, s.ReplaceOrder(ctx, "er", "ng+", []OrderRecord{
		{SaveName: "b.sav", OrderKey: 1024},
		{SaveName: "a.sav", OrderKey: 2048},
	}))

	order, err := s.ListOrder(ctx, "er", "ng+")
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "b.sav", order[0].SaveName, "sorted by key")

	require.NoError(t, s.RenameSave(ctx, "er", "ng+", "a.sav", "boss.sav"))
	require.NoError(t, s.DeleteSave(ctx, "er", "ng+", "b.sav"))

	order, err = s.ListOrder(ctx, "er", "ng+")
	require.NoError(t, err)
	require.Len(t, order, 1)
	assert.Equal(t, "boss.sav", order[0].SaveName)
}

func TestSelectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sel, err := s.GetSelection(ctx)
	require.NoError(t, err)
	assert.Empty(t, sel.Game)

	require.NoError(t, s.SetSelection(ctx, Selection{Game: "er", Profile: "ng+"}))

	sel, err = s.GetSelection(ctx)
	require.NoError(t, err)
	assert.Equal(t, Selection{Game: "er", Profile: "ng+"}, sel)
}
