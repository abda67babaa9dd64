package resourceserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/iag/internal/oauthwire"
)

func newIntrospectionStub(t *testing.T, resp oauthwire.IntrospectionResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequireScopeRejectsMissingToken(t *testing.T) {
	s := NewServer(Config{ExpectedAud: "https://rs.example"})

	req := httptest.NewRequest(http.MethodGet, "/mcp/echo", nil)
	rec := httptest.NewRecorder()
	s.requireScope("echo:read", s.handleEcho)(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestRequireScopeRejectsInactiveToken(t *testing.T) {
	stub := newIntrospectionStub(t, oauthwire.IntrospectionResponse{Active: false})
	s := NewServer(Config{ExpectedAud: "https://rs.example", IntrospectURL: stub.URL})

	req := httptest.NewRequest(http.MethodGet, "/mcp/echo", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	s.requireScope("echo:read", s.handleEcho)(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScopeRejectsAudienceMismatch(t *testing.T) {
	stub := newIntrospectionStub(t, oauthwire.IntrospectionResponse{Active: true, Aud: "https://other.example", Scope: "echo:read"})
	s := NewServer(Config{ExpectedAud: "https://rs.example", IntrospectURL: stub.URL})

	req := httptest.NewRequest(http.MethodGet, "/mcp/echo", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	s.requireScope("echo:read", s.handleEcho)(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScopeRejectsInsufficientScope(t *testing.T) {
	stub := newIntrospectionStub(t, oauthwire.IntrospectionResponse{Active: true, Aud: "https://rs.example", Scope: "tickets:read"})
	s := NewServer(Config{ExpectedAud: "https://rs.example", IntrospectURL: stub.URL})

	req := httptest.NewRequest(http.MethodGet, "/mcp/echo", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	s.requireScope("echo:read", s.handleEcho)(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireScopeAllowsValidToken(t *testing.T) {
	stub := newIntrospectionStub(t, oauthwire.IntrospectionResponse{Active: true, Aud: "https://rs.example", Scope: "echo:read", Sub: "user-123"})
	s := NewServer(Config{ExpectedAud: "https://rs.example", IntrospectURL: stub.URL})

	req := httptest.NewRequest(http.MethodGet, "/mcp/echo?msg=hi", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	s.requireScope("echo:read", s.handleEcho)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		OK    bool   `json:"ok"`
		Echo  string `json:"echo"`
		User  string `json:"user"`
		Scope string `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.OK)
	require.Equal(t, "hi", body.Echo)
	require.Equal(t, "user-123", body.User)
	require.Equal(t, "echo:read", body.Scope)
}
