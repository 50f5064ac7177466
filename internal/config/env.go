package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "SAVESCUM_CONFIG"
	EnvDataDir = "SAVESCUM_DATA_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SAVESCUM_CONFIG: override config file path
	DataDir    string // SAVESCUM_DATA_DIR: override profiles root
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Callers apply the relevant fields; the Config is not modified.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DataDir:    os.Getenv(EnvDataDir),
	}
}
