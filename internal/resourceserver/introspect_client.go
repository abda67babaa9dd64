package resourceserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/iag/internal/oauthwire"
)

// introspectToken calls the authorization server's introspection endpoint
// with the bearer token from form body, per RFC 7662. The RS never
// verifies tokens locally -- introspection is its only trust anchor.
func (s *Server) introspectToken(token string) (oauthwire.IntrospectionResponse, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequest(http.MethodPost, s.cfg.IntrospectURL, strings.NewReader(form.Encode()))
	if err != nil {
		return oauthwire.IntrospectionResponse{}, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return oauthwire.IntrospectionResponse{}, fmt.Errorf("introspection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oauthwire.IntrospectionResponse{}, fmt.Errorf("introspection returned status %d", resp.StatusCode)
	}

	var out oauthwire.IntrospectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return oauthwire.IntrospectionResponse{}, fmt.Errorf("decode introspection response: %w", err)
	}
	return out, nil
}
