package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EvaluateRequest is the gateway's request body to ADP's /evaluate.
type EvaluateRequest struct {
	Subject         string                 `json:"subject"`
	AgentID         string                 `json:"agent_id"`
	ToolID          string                 `json:"tool_id"`
	Audience        string                 `json:"audience"`
	RequestedScopes []string               `json:"requested_scopes"`
	Context         map[string]interface{} `json:"context"`
}

// EvaluateResponse is ADP's /evaluate response.
type EvaluateResponse struct {
	Allow       bool            `json:"allow"`
	Scopes      []string        `json:"scopes"`
	Obligations ObligationsWire `json:"obligations"`
	Reason      string          `json:"reason,omitempty"`
}

// ObligationsWire is the JSON shape ADP emits for obligations; translated
// into the gateway's internal Obligations type once decided.
type ObligationsWire struct {
	BindOrder        string   `json:"bind_order,omitempty"`
	MaxAmountCents   *int     `json:"max_amount_cents,omitempty"`
	MerchantAllowlist []string `json:"merchant_allowlist,omitempty"`
	TTL              int      `json:"ttl,omitempty"`
}

// ConsentRequest is the gateway's request body to ADP's /consent.
type ConsentRequest struct {
	Subject  string   `json:"subject"`
	AgentID  string   `json:"agent_id"`
	ToolID   string   `json:"tool_id"`
	Audience string   `json:"audience"`
	Scopes   []string `json:"scopes"`
	Explicit bool     `json:"explicit"`
}

// ConsentResponse is ADP's /consent response.
type ConsentResponse struct {
	Allow    bool   `json:"allow"`
	RecordID string `json:"record_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ADPClient is the gateway's HTTP client for the authorizer's policy API.
type ADPClient struct {
	base       string
	httpClient *http.Client
}

// NewADPClient builds an ADPClient pointed at the given ADP base URL.
func NewADPClient(base string) *ADPClient {
	return &ADPClient{base: base, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// Evaluate calls ADP's POST /evaluate.
func (c *ADPClient) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error) {
	var out EvaluateResponse
	if err := c.postJSON(ctx, "/evaluate", req, &out); err != nil {
		return EvaluateResponse{}, err
	}
	return out, nil
}

// Consent calls ADP's POST /consent.
func (c *ADPClient) Consent(ctx context.Context, req ConsentRequest) (ConsentResponse, error) {
	var out ConsentResponse
	if err := c.postJSON(ctx, "/consent", req, &out); err != nil {
		return ConsentResponse{}, err
	}
	return out, nil
}

func (c *ADPClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal adp request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build adp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call adp %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("adp %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode adp %s response: %w", path, err)
	}
	return nil
}

// ToObligations translates the ADP wire shape into the gateway's internal
// Obligations. It does not record the issue time used for TTL enforcement;
// Start sets Session.ObligationsIssuedAt alongside it.
func (w ObligationsWire) ToObligations() Obligations {
	o := Obligations{
		BindOrder:         w.BindOrder,
		MerchantAllowlist: w.MerchantAllowlist,
		TTLSeconds:        w.TTL,
	}
	if w.MaxAmountCents != nil {
		o.MaxAmountCents = *w.MaxAmountCents
		o.HasMaxAmountCents = true
	}
	return o
}
