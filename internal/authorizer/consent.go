package authorizer

import "fmt"

// ConsentRequest mirrors the gateway's POST /consent payload.
type ConsentRequest struct {
	Subject  string   `json:"subject"`
	AgentID  string   `json:"agent_id"`
	ToolID   string   `json:"tool_id"`
	Audience string   `json:"audience"`
	Scopes   []string `json:"scopes"`
	Explicit bool     `json:"explicit"`
}

// ConsentResult mirrors the gateway's expected /consent response.
type ConsentResult struct {
	Allow    bool   `json:"allow"`
	RecordID string `json:"record_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Consent implements the §4.4 /consent contract: a covering delegation
// auto-approves; an explicit approval is accepted as-is; anything else
// requires the user to approve through the gateway's consent page.
func (p *Policy) Consent(req ConsentRequest) (ConsentResult, error) {
	delegation, err := p.Store.Find(req.Subject, req.AgentID, req.ToolID)
	if err != nil {
		return ConsentResult{}, err
	}

	if delegation != nil && coversAll(delegation.Scopes, req.Scopes) {
		return ConsentResult{Allow: true, RecordID: fmt.Sprintf("auto-%d", unixNow())}, nil
	}

	if req.Explicit {
		return ConsentResult{Allow: true, RecordID: fmt.Sprintf("exp-%d", unixNow())}, nil
	}

	return ConsentResult{Allow: false, Reason: "explicit_required"}, nil
}

func coversAll(delegated, requested []string) bool {
	set := make(map[string]struct{}, len(delegated))
	for _, s := range delegated {
		set[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
