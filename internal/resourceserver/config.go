package resourceserver

import "github.com/caarlos0/env/v11"

type rawConfig struct {
	Port            int    `env:"PORT" envDefault:"9400"`
	Base            string `env:"RS_BASE" envDefault:"http://localhost:9400"`
	ASMetadataURL   string `env:"AS_METADATA_URL,required"`
	IntrospectURL   string `env:"AUTH_INTROSPECT_URL,required"`
	ExpectedAud     string `env:"EXPECTED_AUD" envDefault:"http://localhost:9400"`
	Debug           bool   `env:"RS_DEBUG" envDefault:"false"`
}

// Config is the resource server's resolved runtime configuration.
type Config struct {
	Port          int
	Base          string
	ASMetadataURL string
	IntrospectURL string
	ExpectedAud   string
	Debug         bool
}

// LoadConfig parses the process environment into a Config.
func LoadConfig() (Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}
	return Config{
		Port:          raw.Port,
		Base:          raw.Base,
		ASMetadataURL: raw.ASMetadataURL,
		IntrospectURL: raw.IntrospectURL,
		ExpectedAud:   raw.ExpectedAud,
		Debug:         raw.Debug,
	}, nil
}
