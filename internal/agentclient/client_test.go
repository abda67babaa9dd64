package agentclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartPostsSessionStartAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session/start", r.URL.Path)
		var body StartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "echo", body.ToolID)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(StartResponse{SID: "sid-123", AuthorizeURL: "https://as.example/authorize?foo=bar"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Start(context.Background(), StartRequest{ToolID: "echo", Scope: "echo:read"})
	require.NoError(t, err)
	require.Equal(t, "sid-123", resp.SID)
	require.Contains(t, resp.AuthorizeURL, "authorize")
}

func TestWaitReadyReturnsOnceSessionIsReady(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		ready := calls >= 2
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.WaitReady(context.Background(), "sid-123", "echo:read", 5*time.Millisecond, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, calls, 2)
}

func TestWaitReadyGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": false})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.WaitReady(context.Background(), "sid-123", "echo:read", time.Millisecond, 3)
	require.Error(t, err)
}

func TestCallToolForwardsQueryAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mcp/echo", r.URL.Path)
		require.Equal(t, "hi", r.URL.Query().Get("message"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"echo":"hi"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, body, err := c.CallTool(context.Background(), "echo", http.MethodGet, map[string]string{"message": "hi"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), "hi")
}
