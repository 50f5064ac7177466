package config

// Default values for configuration options: layer 0 of the override chain.
// The watch tunings were validated against inotify delivery latency on ext4;
// slower notification backends may need a wider debounce window.
const (
	defaultLogLevel       = "info"
	defaultDebounceWindow = "50ms"
	defaultSuppressionTTL = "2s"
	defaultRenameGrace    = "100ms"
)

// stateDBFileName is the database file created under the data directory
// when state_db is not set.
const stateDBFileName = "state.db"

// DefaultConfig returns a Config populated with all default values. Used as
// the starting point for TOML decoding (unset fields retain defaults) and as
// the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Watch: WatchConfig{
			DebounceWindow: defaultDebounceWindow,
			SuppressionTTL: defaultSuppressionTTL,
			RenameGrace:    defaultRenameGrace,
		},
		Games: make(map[string]GameConfig),
	}
}
