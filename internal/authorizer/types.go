// Package authorizer implements the policy engine (ADP): the delegation
// store and the /evaluate, /consent, and /delegations decision contract the
// gateway consults before issuing tool access.
package authorizer

import "time"

// Constraints are optional bounds a delegation places on the scopes it
// grants, evaluated against the gateway-supplied request context.
type Constraints struct {
	MaxAmountCents int      `json:"max_amount_cents,omitempty"`
	Merchants      []string `json:"merchants,omitempty"`
}

// Delegation is a signed statement by a user authorizing an agent to
// exercise given scopes on a tool, persisted keyed by (subject, agent_id,
// tool_id); a newer submission upserts the existing record.
type Delegation struct {
	Subject     string
	AgentID     string
	ToolID      string
	Scopes      []string
	NotAfter    time.Time
	Issuer      string
	Envelope    string // the raw signed JWS, kept for audit
	Constraints *Constraints
}

// Expired reports whether the delegation's not_after has passed.
func (d Delegation) Expired(now time.Time) bool {
	return now.After(d.NotAfter)
}
