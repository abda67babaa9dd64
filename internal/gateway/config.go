package gateway

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// rawConfig holds the literal environment variables per §6 of the gateway's
// external interface contract, parsed with caarlos0/env the way the rest of
// the retrieval corpus loads service configuration from a single env layer.
type rawConfig struct {
	Base            string `env:"GW_BASE,required"`
	UpstreamRS      string `env:"UPSTREAM_RS,required"`
	FallbackRSMeta  string `env:"RS_META"`
	ADPBase         string `env:"ADP_BASE,required"`
	StateSecret     string `env:"GW_STATE_SECRET,required"`
	WalletPMToken   string `env:"WALLET_PM_TOKEN"`
	ProbePath       string `env:"GW_PROBE_PATH" envDefault:"/mcp/echo"`
	// ClientID is the fallback client_id used if startup self-registration
	// against the authorization server's /register endpoint fails; once
	// EnsureRegistered succeeds the gateway uses the AS-issued client_id
	// instead.
	ClientID        string `env:"GW_CLIENT_ID" envDefault:"demo-gateway-client"`
	Port            int    `env:"PORT" envDefault:"9200"`
	Debug           bool   `env:"GW_DEBUG" envDefault:"false"`
}

// Config is the gateway's runtime configuration, derived from rawConfig.
type Config struct {
	Base          string
	UpstreamRS    string
	FallbackRSMeta string
	ADPBase       string
	StateSecret   []byte
	WalletPMToken string
	ProbePath     string
	ClientID      string
	Port          int
	Debug         bool
}

// LoadConfig reads gateway configuration from the process environment.
func LoadConfig() (Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse gateway config: %w", err)
	}
	if raw.StateSecret == "" {
		return Config{}, fmt.Errorf("GW_STATE_SECRET must not be empty")
	}

	return Config{
		Base:           raw.Base,
		UpstreamRS:     raw.UpstreamRS,
		FallbackRSMeta: raw.FallbackRSMeta,
		ADPBase:        raw.ADPBase,
		StateSecret:    []byte(raw.StateSecret),
		WalletPMToken:  raw.WalletPMToken,
		ProbePath:      raw.ProbePath,
		ClientID:       raw.ClientID,
		Port:           raw.Port,
		Debug:          raw.Debug,
	}, nil
}
