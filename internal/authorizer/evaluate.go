package authorizer

import (
	"time"
)

const defaultObligationTTLSeconds = 900

// EvaluateRequest mirrors the gateway's POST /evaluate payload.
type EvaluateRequest struct {
	Subject         string                 `json:"subject"`
	AgentID         string                 `json:"agent_id"`
	ToolID          string                 `json:"tool_id"`
	Audience        string                 `json:"audience"`
	RequestedScopes []string               `json:"requested_scopes"`
	Context         map[string]interface{} `json:"context"`
}

// ObligationsResult is the obligations object returned alongside an allow
// decision; fields are omitted (left nil/zero) when not applicable.
type ObligationsResult struct {
	BindOrder         string   `json:"bind_order,omitempty"`
	MaxAmountCents    *int     `json:"max_amount_cents,omitempty"`
	MerchantAllowlist []string `json:"merchant_allowlist,omitempty"`
	TTL               int      `json:"ttl"`
}

// EvaluateResult mirrors the gateway's expected /evaluate response.
type EvaluateResult struct {
	Allow       bool              `json:"allow"`
	Scopes      []string          `json:"scopes,omitempty"`
	Obligations ObligationsResult `json:"obligations"`
	Reason      string            `json:"reason,omitempty"`
}

// Policy evaluates delegation + context against a tool access request. The
// strict flag controls the no-delegation-found behavior: false (demo mode)
// allows with minimal obligations, true denies.
type Policy struct {
	Store  *Store
	Strict bool
}

// Evaluate implements the §4.4 /evaluate contract: intersect requested and
// delegated scopes, check constraints against context, and emit
// obligations for an allowed request.
func (p *Policy) Evaluate(req EvaluateRequest) (EvaluateResult, error) {
	delegation, err := p.Store.Find(req.Subject, req.AgentID, req.ToolID)
	if err != nil {
		return EvaluateResult{}, err
	}

	orderID, _ := req.Context["orderId"].(string)

	if delegation == nil {
		if p.Strict {
			return EvaluateResult{Allow: false, Reason: "no_delegation"}, nil
		}
		return EvaluateResult{
			Allow: true,
			Obligations: ObligationsResult{
				BindOrder: orderID,
				TTL:       defaultObligationTTLSeconds,
			},
		}, nil
	}

	scopes := intersect(req.RequestedScopes, delegation.Scopes)
	if len(scopes) == 0 {
		if len(delegation.Scopes) == 0 {
			return EvaluateResult{Allow: false, Reason: "no_scopes_delegated"}, nil
		}
		scopes = delegation.Scopes
	}

	if delegation.Constraints != nil {
		if amount, ok := req.Context["amount_cents"].(float64); ok && delegation.Constraints.MaxAmountCents > 0 {
			if int(amount) > delegation.Constraints.MaxAmountCents {
				return EvaluateResult{Allow: false, Reason: "amount_exceeds_max"}, nil
			}
		}
		if merchant, ok := req.Context["merchant_id"].(string); ok && len(delegation.Constraints.Merchants) > 0 {
			if !containsString(delegation.Constraints.Merchants, merchant) {
				return EvaluateResult{Allow: false, Reason: "merchant_not_allowed"}, nil
			}
		}
	}

	obligations := ObligationsResult{BindOrder: orderID, TTL: defaultObligationTTLSeconds}
	if delegation.Constraints != nil {
		if delegation.Constraints.MaxAmountCents > 0 {
			max := delegation.Constraints.MaxAmountCents
			obligations.MaxAmountCents = &max
		}
		if len(delegation.Constraints.Merchants) > 0 {
			obligations.MerchantAllowlist = delegation.Constraints.Merchants
		}
	}

	return EvaluateResult{Allow: true, Scopes: scopes, Obligations: obligations}, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// unixNow returns the current Unix time in seconds, used to build consent
// record IDs.
func unixNow() int64 {
	return time.Now().Unix()
}
