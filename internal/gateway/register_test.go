package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/iag/internal/oauthwire"
)

func TestEnsureRegisteredAdoptsASIssuedClientID(t *testing.T) {
	var asServer *httptest.Server
	rsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mcp/echo":
			w.Header().Set("WWW-Authenticate", `Bearer resource_metadata="http://`+r.Host+`/.well-known/oauth-protected-resource"`)
			w.WriteHeader(http.StatusUnauthorized)
		case "/.well-known/oauth-protected-resource":
			_ = json.NewEncoder(w).Encode(oauthwire.ProtectedResourceMetadata{
				Resource: "https://rs.example", AuthorizationServers: []string{asServer.URL},
			})
		}
	}))
	defer rsServer.Close()

	asServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/oauth-authorization-server":
			_ = json.NewEncoder(w).Encode(oauthwire.AuthorizationServerMetadata{
				Issuer:                "https://as.example",
				AuthorizationEndpoint: "https://as.example/authorize",
				TokenEndpoint:         "https://as.example/token",
				RegistrationEndpoint:  "http://" + r.Host + "/register",
			})
		case "/register":
			require.Equal(t, http.MethodPost, r.Method)
			var req oauthwire.ClientRegistrationRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, []string{"https://gw.example/oauth/callback"}, req.RedirectURIs)

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(oauthwire.ClientRegistrationResponse{
				ClientID:     "as-issued-client-id",
				ClientName:   req.ClientName,
				RedirectURIs: req.RedirectURIs,
			})
		}
	}))
	defer asServer.Close()

	g := NewGateway(Config{
		Base:       "https://gw.example",
		UpstreamRS: rsServer.URL,
		ProbePath:  "/mcp/echo",
		ClientID:   "demo-gateway-client",
	})
	t.Cleanup(g.sessions.Stop)

	require.Equal(t, "demo-gateway-client", g.ClientID())

	err := g.EnsureRegistered(context.Background())
	require.NoError(t, err)
	require.Equal(t, "as-issued-client-id", g.ClientID())

	session := &Session{
		SID:           "sid-reg",
		ScopeString:   "echo:read",
		Audience:      "https://rs.example",
		PKCEChallenge: "challenge",
		StateToken:    "state-token",
		ASMetadata:    &oauthwire.AuthorizationServerMetadata{AuthorizationEndpoint: "https://as.example/authorize"},
	}
	authorizeURL, err := g.buildAuthorizeURL(session)
	require.NoError(t, err)

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	require.Equal(t, "as-issued-client-id", parsed.Query().Get("client_id"))
}

func TestEnsureRegisteredFailsWhenASAdvertisesNoRegistrationEndpoint(t *testing.T) {
	var asServer *httptest.Server
	rsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mcp/echo":
			w.Header().Set("WWW-Authenticate", `Bearer resource_metadata="http://`+r.Host+`/.well-known/oauth-protected-resource"`)
			w.WriteHeader(http.StatusUnauthorized)
		case "/.well-known/oauth-protected-resource":
			_ = json.NewEncoder(w).Encode(oauthwire.ProtectedResourceMetadata{
				Resource: "https://rs.example", AuthorizationServers: []string{asServer.URL},
			})
		}
	}))
	defer rsServer.Close()

	asServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(oauthwire.AuthorizationServerMetadata{Issuer: "https://as.example"})
	}))
	defer asServer.Close()

	g := NewGateway(Config{Base: "https://gw.example", UpstreamRS: rsServer.URL, ProbePath: "/mcp/echo", ClientID: "fallback-client"})
	t.Cleanup(g.sessions.Stop)

	err := g.EnsureRegistered(context.Background())
	require.Error(t, err)
	require.Equal(t, "fallback-client", g.ClientID())
}
