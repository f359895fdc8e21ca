package config

import (
	"github.com/spf13/viper"
)

// Config carries environment-level defaults that sit under the CLI flags.
type Config struct {
	Device    string
	Threads   int
	OutputDir string
	ModelsDir string
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads OMZ_* environment variables with sensible defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("OMZ_DEVICE", "CPU")
	v.SetDefault("OMZ_THREADS", 4)
	v.SetDefault("OMZ_OUTPUT_DIR", ".")
	v.SetDefault("OMZ_MODELS_DIR", "models")
	v.SetDefault("OMZ_LOGGER_LEVEL", "info")
	v.SetDefault("OMZ_LOGGER_FORMAT", "text")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Device:    v.GetString("OMZ_DEVICE"),
		Threads:   v.GetInt("OMZ_THREADS"),
		OutputDir: v.GetString("OMZ_OUTPUT_DIR"),
		ModelsDir: v.GetString("OMZ_MODELS_DIR"),
		Logger: LoggerConfig{
			Level:  v.GetString("OMZ_LOGGER_LEVEL"),
			Format: v.GetString("OMZ_LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
