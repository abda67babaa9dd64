package authorizer

import (
	"fmt"
	"time"
)

// DelegationSubmission mirrors the gateway-facing POST /delegations payload:
// a compact signed JWS envelope plus the public key needed to verify it.
type DelegationSubmission struct {
	JWS       string    `json:"jws"`
	PublicJWK PublicJWK `json:"public_jwk"`
}

// SubmitDelegation verifies the envelope and upserts the resulting
// delegation, keyed by (subject, agent_id, tool_id).
func (p *Policy) SubmitDelegation(sub DelegationSubmission) (Delegation, error) {
	claims, err := VerifyDelegation(sub.JWS, sub.PublicJWK)
	if err != nil {
		return Delegation{}, fmt.Errorf("invalid delegation: %w", err)
	}

	d := Delegation{
		Subject:     claims.Subject,
		AgentID:     claims.AgentID,
		ToolID:      claims.ToolID,
		Scopes:      claims.Scopes,
		NotAfter:    time.Unix(claims.NotAfter, 0),
		Issuer:      claims.Issuer,
		Envelope:    sub.JWS,
		Constraints: claims.Constraints,
	}

	if d.Expired(time.Now()) {
		return Delegation{}, fmt.Errorf("delegation already expired at submission")
	}

	if err := p.Store.Upsert(d); err != nil {
		return Delegation{}, err
	}
	return d, nil
}
