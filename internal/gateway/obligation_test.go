package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/iag/internal/oauthwire"
)

func TestEnforceObligationsOrderBindingFirst(t *testing.T) {
	s := &Session{
		Obligations: Obligations{
			BindOrder:         "order-1001",
			HasMaxAmountCents: true,
			MaxAmountCents:     2000,
			MerchantAllowlist:  []string{"mcp-tix"},
		},
		ObligationsIssuedAt: time.Now(),
	}

	// Wrong order id fails first, even though amount and merchant are also bad.
	err := EnforceObligations(s, ToolRequest{
		OrderID: "order-9999", AmountCents: 99999, HasAmount: true, MerchantID: "evil-shop",
	}, time.Now())

	var coded *oauthwire.CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, oauthwire.CodeObligationViolation, coded.Code)
	require.Contains(t, coded.Detail, "orderId mismatch")
}

func TestEnforceObligationsAmountCap(t *testing.T) {
	s := &Session{
		Obligations: Obligations{
			BindOrder:         "order-1001",
			HasMaxAmountCents: true,
			MaxAmountCents:     2000,
		},
		ObligationsIssuedAt: time.Now(),
	}

	err := EnforceObligations(s, ToolRequest{OrderID: "order-1001", AmountCents: 3000, HasAmount: true}, time.Now())
	var coded *oauthwire.CodedError
	require.ErrorAs(t, err, &coded)
	require.Contains(t, coded.Detail, "amount exceeds max")
}

func TestEnforceObligationsMerchantAllowlist(t *testing.T) {
	s := &Session{
		Obligations: Obligations{
			BindOrder:         "order-1001",
			MerchantAllowlist: []string{"mcp-tix"},
		},
		ObligationsIssuedAt: time.Now(),
	}

	err := EnforceObligations(s, ToolRequest{OrderID: "order-1001", MerchantID: "evil-shop"}, time.Now())
	var coded *oauthwire.CodedError
	require.ErrorAs(t, err, &coded)
	require.Contains(t, coded.Detail, "merchant not allowed")
}

func TestEnforceObligationsTTLExpiry(t *testing.T) {
	s := &Session{
		Obligations:         Obligations{TTLSeconds: 1},
		ObligationsIssuedAt: time.Now().Add(-2 * time.Second),
	}

	err := EnforceObligations(s, ToolRequest{}, time.Now())
	var coded *oauthwire.CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, oauthwire.CodeSessionObligationTTLExpired, coded.Code)
}

func TestEnforceObligationsPasses(t *testing.T) {
	s := &Session{
		Obligations: Obligations{
			BindOrder:         "order-1001",
			HasMaxAmountCents: true,
			MaxAmountCents:     2000,
			MerchantAllowlist:  []string{"mcp-tix"},
			TTLSeconds:         900,
		},
		ObligationsIssuedAt: time.Now(),
	}

	err := EnforceObligations(s, ToolRequest{
		OrderID: "order-1001", AmountCents: 1200, HasAmount: true, MerchantID: "mcp-tix",
	}, time.Now())
	require.NoError(t, err)
}
