// Package config implements TOML configuration loading, validation, and
// path resolution for savescum. It supports a layered override chain
// (defaults -> config file -> environment -> CLI flags) and resolves the
// per-game watch roots and save-slot paths the engine consumes.
package config

import "time"

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	// DataDir is the profiles root: each game owns a subdirectory here,
	// each profile a subdirectory of its game. It is the outermost watch
	// root.
	DataDir string `toml:"data_dir"`

	// StateDB is the path of the persisted-state database. Defaults to
	// <data_dir>/state.db.
	StateDB string `toml:"state_db"`

	Logging LoggingConfig         `toml:"logging"`
	Watch   WatchConfig           `toml:"watch"`
	Games   map[string]GameConfig `toml:"game"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// WatchConfig holds the reconciler tuning knobs. These are product-tuning
// constants that vary with filesystem notification latency, so they are
// configurable rather than hard-coded.
type WatchConfig struct {
	// DebounceWindow coalesces events for the same path; absorbs
	// editor-style write-temp-then-rename patterns.
	DebounceWindow string `toml:"debounce_window"`

	// SuppressionTTL bounds how long a self-caused-event suppression entry
	// stays armed without being matched.
	SuppressionTTL string `toml:"suppression_ttl"`

	// RenameGrace is how long a rename-from waits for its counterpart
	// before degrading to a pure deletion.
	RenameGrace string `toml:"rename_grace"`
}

// GameConfig is one [game.<name>] section.
type GameConfig struct {
	// SaveSlot is the live save path the target game reads from; load
	// copies a save entry onto it.
	SaveSlot string `toml:"save_slot"`

	// StorageDir overrides the game's storage root. Defaults to
	// <data_dir>/<name>.
	StorageDir string `toml:"storage_dir"`

	// Preset marks built-in game definitions shipped with the tool.
	Preset bool `toml:"preset"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	DataDir    string // --data-dir flag
}

// Resolved is the effective configuration after the override chain and
// validation. All paths are absolute and all durations parsed.
type Resolved struct {
	DataDir  string
	StateDB  string
	LogLevel string
	Watch    WatchTuning
	Games    []ResolvedGame
}

// WatchTuning is WatchConfig with durations parsed.
type WatchTuning struct {
	DebounceWindow time.Duration
	SuppressionTTL time.Duration
	RenameGrace    time.Duration
}

// ResolvedGame is one configured game with its paths resolved.
type ResolvedGame struct {
	Name       string
	StorageDir string
	SaveSlot   string
	Preset     bool
}
