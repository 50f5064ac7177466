package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a TOML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadParsesGamesAndTuning(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data/savescum"

[logging]
log_level = "debug"

[watch]
debounce_window = "75ms"

[game.elden-ring]
save_slot = "/saves/ER0000.sl2"

[game.hollow-knight]
save_slot = "/saves/user1.dat"
storage_dir = "/mnt/hk"
preset = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/savescum", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "75ms", cfg.Watch.DebounceWindow)
	// Unset tunings retain defaults.
	assert.Equal(t, defaultSuppressionTTL, cfg.Watch.SuppressionTTL)

	require.Len(t, cfg.Games, 2)
	assert.Equal(t, "/saves/ER0000.sl2", cfg.Games["elden-ring"].SaveSlot)
	assert.True(t, cfg.Games["hollow-knight"].Preset)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/data"
debounce_windw = "75ms"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
	assert.Contains(t, err.Error(), "debounce_windw")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing save slot",
			"[game.er]\nstorage_dir = \"/x\"\n",
			"save_slot is required",
		},
		{
			"bad log level",
			"[logging]\nlog_level = \"trace\"\n",
			"invalid log_level",
		},
		{
			"bad duration",
			"[watch]\nrename_grace = \"fast\"\n",
			"invalid rename_grace",
		},
		{
			"negative duration",
			"[watch]\ndebounce_window = \"-5ms\"\n",
			"must be positive",
		},
		{
			"game name with separator",
			"[game.\"a/b\"]\nsave_slot = \"/s\"\n",
			"path separator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
	assert.Empty(t, cfg.Games)
}

func TestResolveOverrideChain(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/from-file"

[game.er]
save_slot = "/saves/er.sl2"
`)

	env := EnvOverrides{DataDir: "/from-env"}
	cli := CLIOverrides{ConfigPath: path}

	resolved, err := Resolve(env, cli)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", resolved.DataDir, "env beats config file")

	cli.DataDir = "/from-cli"
	resolved, err = Resolve(env, cli)
	require.NoError(t, err)
	assert.Equal(t, "/from-cli", resolved.DataDir, "CLI beats env")

	assert.Equal(t, filepath.Join("/from-cli", "state.db"), resolved.StateDB)

	require.Len(t, resolved.Games, 1)
	assert.Equal(t, "er", resolved.Games[0].Name)
	assert.Equal(t, filepath.Join("/from-cli", "er"), resolved.Games[0].StorageDir)
}

func TestResolveParsesTuning(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/d"

[watch]
debounce_window = "30ms"
suppression_ttl = "5s"
rename_grace = "200ms"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Millisecond, resolved.Watch.DebounceWindow)
	assert.Equal(t, 5*time.Second, resolved.Watch.SuppressionTTL)
	assert.Equal(t, 200*time.Millisecond, resolved.Watch.RenameGrace)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("ng+"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("a/b"))
	assert.Error(t, ValidateName(".."))
	assert.Error(t, ValidateName(".hidden"))
}
