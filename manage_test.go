package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savescum/savescum/internal/config"
	"github.com/savescum/savescum/internal/state"
)

// cliFixture is a throwaway config file plus the paths the commands operate
// on: a configured game with a live save slot under a temp data dir.
type cliFixture struct {
	cfgPath string
	dataDir string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	// Neutralize ambient overrides so the test only sees its own config.
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvDataDir, "")

	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "profiles")
	slot := filepath.Join(tmp, "ER0000.sl2")

	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "elden-ring"), 0o755))
	require.NoError(t, os.WriteFile(slot, []byte("live save"), 0o644))

	cfgPath := filepath.Join(tmp, "config.toml")
	content := `data_dir = "` + dataDir + `"

[game.elden-ring]
save_slot = "` + slot + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return &cliFixture{cfgPath: cfgPath, dataDir: dataDir}
}

// run executes one full CLI invocation against the fixture's config.
func (f *cliFixture) run(t *testing.T, args ...string) {
	t.Helper()

	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", f.cfgPath, "--quiet"}, args...))

	require.NoError(t, cmd.Execute())
}

func (f *cliFixture) selection(t *testing.T) state.Selection {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := state.NewStore(filepath.Join(f.dataDir, "state.db"), logger)
	require.NoError(t, err)

	defer store.Close()

	sel, err := store.GetSelection(context.Background())
	require.NoError(t, err)

	return sel
}

func TestMoveSelectsMovedEntry(t *testing.T) {
	f := newCLIFixture(t)

	f.run(t, "create-profile", "elden-ring", "alpha")
	f.run(t, "create-profile", "elden-ring", "beta")
	f.run(t, "import", "elden-ring", "alpha", "first-run")

	f.run(t, "move", "elden-ring", "alpha", "first-run", "beta")

	sel := f.selection(t)
	assert.Equal(t, "elden-ring", sel.Game)
	assert.Equal(t, "beta", sel.Profile, "cursor follows the entry to its destination profile")
}
