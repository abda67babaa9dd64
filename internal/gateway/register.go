package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

// EnsureRegistered performs the CIMD-style self-describing client
// registration: it discovers the upstream RS's authorization server, then
// registers the gateway's own callback URL with that AS's RFC 7591
// /register endpoint, replacing the configured fallback client_id with the
// one the AS assigns. Callers run this once at startup, before serving
// traffic, since the AS rejects authorize requests from any client_id it
// never issued.
func (g *Gateway) EnsureRegistered(ctx context.Context) error {
	_, asMeta, err := g.discoverer.Discover(ctx, g.cfg.UpstreamRS, g.cfg.ProbePath)
	if err != nil {
		return fmt.Errorf("discover authorization server: %w", err)
	}
	if asMeta.RegistrationEndpoint == "" {
		return fmt.Errorf("authorization server %s advertises no registration_endpoint", asMeta.Issuer)
	}

	reqBody := oauthwire.ClientRegistrationRequest{
		ClientName:   "identity-aware-gateway",
		RedirectURIs: []string{g.callbackURL()},
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, asMeta.RegistrationEndpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call registration endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registration endpoint returned status %d", resp.StatusCode)
	}

	var out oauthwire.ClientRegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("parse registration response: %w", err)
	}
	if out.ClientID == "" {
		return fmt.Errorf("registration response carried no client_id")
	}

	g.setClientID(out.ClientID)
	logging.Info("gateway", "registered with authorization server, client_id=%s", logging.TruncateID(out.ClientID))
	return nil
}
