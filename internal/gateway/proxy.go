package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

// ProxyResult carries the upstream response back to the HTTP layer.
type ProxyResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// CallTool enforces the session's obligations and forwards the request to
// the upstream RS, injecting the bearer token (and, for payments, the
// wallet payment-method token held only by the gateway).
func (g *Gateway) CallTool(ctx context.Context, toolID string, method string, query map[string]string, jsonBody map[string]interface{}) (ProxyResult, error) {
	session, cfg, err := g.SessionForTool(toolID)
	if err != nil {
		return ProxyResult{}, err
	}

	toolReq := extractToolRequest(query, jsonBody)
	if err := EnforceObligations(session, toolReq, time.Now()); err != nil {
		if coded, ok := err.(*oauthwire.CodedError); ok && coded.Code == oauthwire.CodeSessionObligationTTLExpired {
			g.ClearToken(session.SID)
		}
		return ProxyResult{}, err
	}

	upstreamPath := resolveUpstreamPath(cfg.UpstreamPath, toolReq.OrderID)
	upstreamURL := strings.TrimSuffix(session.Upstream, "/") + upstreamPath

	req, err := buildUpstreamRequest(ctx, method, upstreamURL, query, jsonBody)
	if err != nil {
		return ProxyResult{}, errBadGateway(err.Error())
	}

	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	if toolID == "pay" && g.cfg.WalletPMToken != "" {
		req.Header.Set("X-Wallet-PM-Token", g.cfg.WalletPMToken)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return ProxyResult{}, errBadGateway(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		logging.Warn("gateway", "upstream returned %d for sid=%s, clearing token", resp.StatusCode, logging.TruncateID(session.SID))
		g.ClearToken(session.SID)
		return ProxyResult{}, errLoginRequired("upstream rejected token")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProxyResult{}, errBadGateway(err.Error())
	}

	// Parse-and-reserialize JSON bodies to prevent header/body smuggling
	// from the upstream response reaching the agent verbatim.
	reserialized := body
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var v interface{}
		if err := json.Unmarshal(body, &v); err == nil {
			if out, err := json.Marshal(v); err == nil {
				reserialized = out
			}
		}
	}

	return ProxyResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        reserialized,
	}, nil
}

func buildUpstreamRequest(ctx context.Context, method, upstreamURL string, query map[string]string, jsonBody map[string]interface{}) (*http.Request, error) {
	var body io.Reader
	if jsonBody != nil {
		raw, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, upstreamURL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	return req, nil
}

func resolveUpstreamPath(pathTemplate, orderID string) string {
	if strings.Contains(pathTemplate, "{orderId}") {
		return strings.ReplaceAll(pathTemplate, "{orderId}", orderID)
	}
	return pathTemplate
}

func extractToolRequest(query map[string]string, jsonBody map[string]interface{}) ToolRequest {
	tr := ToolRequest{}

	if v, ok := query["orderId"]; ok {
		tr.OrderID = v
	}
	if v, ok := query["merchant_id"]; ok {
		tr.MerchantID = v
	}
	if v, ok := query["amount_cents"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			tr.AmountCents = n
			tr.HasAmount = true
		}
	}

	if jsonBody != nil {
		if v, ok := jsonBody["orderId"].(string); ok {
			tr.OrderID = v
		}
		if v, ok := jsonBody["merchant_id"].(string); ok {
			tr.MerchantID = v
		}
		if v, ok := jsonBody["amount_cents"].(float64); ok {
			tr.AmountCents = int(v)
			tr.HasAmount = true
		}
	}

	return tr
}
