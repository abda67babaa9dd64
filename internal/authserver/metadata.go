package authserver

import (
	"net/http"
	"strings"

	"github.com/giantswarm/iag/internal/oauthwire"
)

var supportedScopes = []string{"echo:read", "tickets:read", "payments:charge"}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSuffix(s.cfg.Base, "/")
	meta := oauthwire.AuthorizationServerMetadata{
		Issuer:                            base,
		AuthorizationEndpoint:             base + "/authorize",
		TokenEndpoint:                     base + "/token",
		RegistrationEndpoint:              base + "/register",
		IntrospectionEndpoint:             base + "/introspect",
		ScopesSupported:                   supportedScopes,
		ResponseTypesSupported:           []string{"code"},
		GrantTypesSupported:              []string{"authorization_code"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
		CodeChallengeMethodsSupported:    []string{"S256"},
	}
	writeJSON(w, http.StatusOK, meta)
}
