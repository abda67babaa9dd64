package gateway

import (
	"fmt"
	"time"
)

// ToolRequest is the subset of an inbound /mcp/<tool> request relevant to
// obligation enforcement, extracted from query params or JSON body.
type ToolRequest struct {
	OrderID    string
	AmountCents int
	HasAmount   bool
	MerchantID  string
}

// EnforceObligations checks a session's obligations against an incoming tool
// request in the mandated order: binding, amount, merchant, ttl. The first
// violation short-circuits the rest.
func EnforceObligations(s *Session, req ToolRequest, now time.Time) error {
	o := s.Obligations

	if o.BindOrder != "" && req.OrderID != o.BindOrder {
		return errObligationViolation("orderId mismatch")
	}

	if o.HasMaxAmountCents && req.HasAmount && req.AmountCents > o.MaxAmountCents {
		return errObligationViolation("amount exceeds max")
	}

	if len(o.MerchantAllowlist) > 0 && req.MerchantID != "" && !containsString(o.MerchantAllowlist, req.MerchantID) {
		return errObligationViolation("merchant not allowed")
	}

	if o.TTLSeconds > 0 {
		elapsed := now.Sub(s.ObligationsIssuedAt)
		if elapsed > time.Duration(o.TTLSeconds)*time.Second {
			return errObligationTTLExpired(fmt.Sprintf("ttl of %ds elapsed %s ago", o.TTLSeconds, elapsed))
		}
	}

	return nil
}
