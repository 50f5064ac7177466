package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors — silently ignoring a typo
// in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with defaults. Supports a zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	if cli.DataDir != "" {
		dataDir = cli.DataDir
	}

	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	dataDir = expandHome(dataDir)

	stateDB := expandHome(cfg.StateDB)
	if stateDB == "" {
		stateDB = filepath.Join(dataDir, stateDBFileName)
	}

	tuning, err := parseWatchTuning(cfg.Watch)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	games := make([]ResolvedGame, 0, len(cfg.Games))

	for name, gc := range cfg.Games {
		storage := expandHome(gc.StorageDir)
		if storage == "" {
			storage = filepath.Join(dataDir, name)
		}

		games = append(games, ResolvedGame{
			Name:       name,
			StorageDir: storage,
			SaveSlot:   expandHome(gc.SaveSlot),
			Preset:     gc.Preset,
		})
	}

	// Deterministic game order regardless of map iteration.
	sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })

	return &Resolved{
		DataDir:  dataDir,
		StateDB:  stateDB,
		LogLevel: cfg.Logging.LogLevel,
		Watch:    tuning,
		Games:    games,
	}, nil
}

// checkUnknownKeys rejects keys that were present in the TOML file but did
// not decode into any Config field.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	sort.Strings(keys)

	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}

// validate checks field values after decoding.
func validate(cfg *Config) error {
	switch cfg.Logging.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", cfg.Logging.LogLevel)
	}

	for name, gc := range cfg.Games {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("game section %q: %w", name, err)
		}

		if gc.SaveSlot == "" {
			return fmt.Errorf("game %q: save_slot is required", name)
		}
	}

	if _, err := parseWatchTuning(cfg.Watch); err != nil {
		return err
	}

	return nil
}

// ValidateName checks that a game/profile/save name is usable as a directory
// or file name component.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is empty")
	}

	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q contains a path separator", name)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved", name)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q is hidden (dot prefix)", name)
	}

	return nil
}

// parseWatchTuning parses the duration strings of a WatchConfig.
func parseWatchTuning(wc WatchConfig) (WatchTuning, error) {
	debounce, err := parsePositiveDuration("debounce_window", wc.DebounceWindow)
	if err != nil {
		return WatchTuning{}, err
	}

	ttl, err := parsePositiveDuration("suppression_ttl", wc.SuppressionTTL)
	if err != nil {
		return WatchTuning{}, err
	}

	grace, err := parsePositiveDuration("rename_grace", wc.RenameGrace)
	if err != nil {
		return WatchTuning{}, err
	}

	return WatchTuning{
		DebounceWindow: debounce,
		SuppressionTTL: ttl,
		RenameGrace:    grace,
	}, nil
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, value)
	}

	return d, nil
}
