// Package agentclient implements the demo agent: it starts a gateway
// session, opens a browser at the returned authorize_url, polls for
// readiness, and calls tools through the gateway. It never receives an
// OAuth callback itself -- the gateway owns /oauth/callback -- and never
// sees a raw access token, only gateway-scoped session IDs.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/iag/internal/logging"
)

// Client talks to a gateway on behalf of an agent.
type Client struct {
	gatewayBase string
	httpClient  *http.Client
}

// NewClient builds a Client targeting the given gateway base URL.
func NewClient(gatewayBase string) *Client {
	return &Client{
		gatewayBase: strings.TrimSuffix(gatewayBase, "/"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// StartRequest mirrors the gateway's POST /session/start body.
type StartRequest struct {
	ToolID  string                 `json:"tool_id"`
	Scope   string                 `json:"scope"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// StartResponse mirrors the gateway's POST /session/start response.
type StartResponse struct {
	SID          string `json:"sid"`
	AuthorizeURL string `json:"authorize_url"`
}

// Start initiates a session for the given tool/scope.
func (c *Client) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	var resp StartResponse
	if err := c.postJSON(ctx, "/session/start", req, &resp); err != nil {
		return StartResponse{}, fmt.Errorf("session start: %w", err)
	}
	return resp, nil
}

// WaitReady polls /session/status until the session is ready for scope,
// or the context is done, or maxAttempts is exceeded.
func (c *Client) WaitReady(ctx context.Context, sid, scope string, pollInterval time.Duration, maxAttempts int) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ready, err := c.sessionReady(ctx, sid, scope)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("session %s did not become ready after %d attempts", logging.TruncateID(sid), maxAttempts)
}

func (c *Client) sessionReady(ctx context.Context, sid, scope string) (bool, error) {
	url := fmt.Sprintf("%s/session/status?sid=%s&scope=%s", c.gatewayBase, sid, scope)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("session status: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode session status: %w", err)
	}
	return body.Ready, nil
}

// CallTool invokes a tool through the gateway's /mcp/<tool> surface.
func (c *Client) CallTool(ctx context.Context, toolID, method string, query map[string]string, jsonBody map[string]interface{}) (int, []byte, error) {
	url := fmt.Sprintf("%s/mcp/%s", c.gatewayBase, toolID)
	if len(query) > 0 {
		q := make([]string, 0, len(query))
		for k, v := range query {
			q = append(q, fmt.Sprintf("%s=%s", k, v))
		}
		url += "?" + strings.Join(q, "&")
	}

	var body io.Reader
	if jsonBody != nil {
		raw, err := json.Marshal(jsonBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal tool request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call tool %s: %w", toolID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read tool response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody interface{}, out interface{}) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayBase+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
