package authserver

import "github.com/caarlos0/env/v11"

type rawConfig struct {
	Port        int    `env:"PORT" envDefault:"9300"`
	Base        string `env:"AS_BASE" envDefault:"http://localhost:9300"`
	JWTSecret   string `env:"AS_JWT_SECRET,required"`
	DefaultAud  string `env:"EXPECTED_AUD" envDefault:"http://localhost:9400"`
	Debug       bool   `env:"AS_DEBUG" envDefault:"false"`
}

// Config is the authorization server's resolved runtime configuration.
type Config struct {
	Port       int
	Base       string
	JWTSecret  string
	DefaultAud string
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
		Base:       raw.Base,
		JWTSecret:  raw.JWTSecret,
		DefaultAud: raw.DefaultAud,
		Debug:      raw.Debug,
	}, nil
}
