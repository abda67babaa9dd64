package authorizer

import "github.com/caarlos0/env/v11"

// rawConfig is the environment-tagged shape caarlos0/env populates directly;
// LoadConfig maps it into the clean domain Config below.
type rawConfig struct {
	Port        int    `env:"PORT" envDefault:"9100"`
	DBPath      string `env:"ADP_DB" envDefault:"adp.db"`
	StrictMode  bool   `env:"ADP_STRICT_MODE" envDefault:"false"`
	Debug       bool   `env:"ADP_DEBUG" envDefault:"false"`
}

// Config is the authorizer's resolved runtime configuration.
type Config struct {
	Port       int
	DBPath     string
	StrictMode bool
	Debug      bool
}

// LoadConfig parses the process environment into a Config.
func LoadConfig() (Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}
	return Config{
		Port:       raw.Port,
		DBPath:     raw.DBPath,
		StrictMode: raw.StrictMode,
		Debug:      raw.Debug,
	}, nil
}
