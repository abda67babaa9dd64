// Package resourceserver implements the demo protected resource: RFC 9728
// metadata, bearer-token enforcement via AS introspection, and the echo/
// tickets/orders-pay tool handlers the gateway proxies for.
package resourceserver

import (
	"fmt"
	"net/http"

	"github.com/giantswarm/iag/internal/oauthwire"
)

var toolScopes = []string{"echo:read", "tickets:read", "payments:charge"}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	meta := oauthwire.ProtectedResourceMetadata{
		Resource:              s.cfg.ExpectedAud,
		AuthorizationServers:  []string{s.asIssuer()},
		ScopesSupported:       toolScopes,
		BearerMethodsSupported: []string{"header"},
		IntrospectionEndpoint: s.cfg.IntrospectURL,
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) asIssuer() string {
	return trimWellKnownSuffix(s.cfg.ASMetadataURL)
}

func trimWellKnownSuffix(metadataURL string) string {
	const suffix = "/.well-known/oauth-authorization-server"
	if len(metadataURL) > len(suffix) && metadataURL[len(metadataURL)-len(suffix):] == suffix {
		return metadataURL[:len(metadataURL)-len(suffix)]
	}
	return metadataURL
}

func (s *Server) unauthorizedChallenge(w http.ResponseWriter, errCode, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		`Bearer realm=%q, error=%q, error_description=%q, resource_metadata=%q`,
		s.cfg.ExpectedAud, errCode, description, s.cfg.Base+"/.well-known/oauth-protected-resource"))
	oauthwire.WriteError(w, oauthwire.NewCodedError(errCode, http.StatusUnauthorized, description), s.cfg.Debug)
}
