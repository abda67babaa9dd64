package authserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorizeRejectsUnregisteredRedirectURI(t *testing.T) {
	s, store := newTestServer(t)
	client := store.RegisterClient("agent", []string{"https://agent.example/cb"})

	req := httptest.NewRequest(http.MethodGet, "/authorize?"+
		"response_type=code&client_id="+client.ClientID+
		"&redirect_uri=https://evil.example/cb&code_challenge=abc&code_challenge_method=S256", nil)
	rec := httptest.NewRecorder()
	s.handleAuthorize(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeRequiresS256Challenge(t *testing.T) {
	s, store := newTestServer(t)
	client := store.RegisterClient("agent", []string{"https://agent.example/cb"})

	req := httptest.NewRequest(http.MethodGet, "/authorize?"+
		"response_type=code&client_id="+client.ClientID+
		"&redirect_uri=https://agent.example/cb&code_challenge=abc&code_challenge_method=plain", nil)
	rec := httptest.NewRecorder()
	s.handleAuthorize(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeRedirectsWithCodeAndState(t *testing.T) {
	s, store := newTestServer(t)
	client := store.RegisterClient("agent", []string{"https://agent.example/cb"})

	req := httptest.NewRequest(http.MethodGet, "/authorize?"+
		"response_type=code&client_id="+client.ClientID+
		"&redirect_uri=https://agent.example/cb&state=opaque-state"+
		"&code_challenge=abc&code_challenge_method=S256", nil)
	rec := httptest.NewRecorder()
	s.handleAuthorize(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	require.Contains(t, location, "state=opaque-state")
	require.Contains(t, location, "code=")
}
