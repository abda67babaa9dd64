package authorizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsentAutoApprovesWhenDelegationCoversScopes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read"}, NotAfter: time.Now().Add(time.Hour),
	}))
	p := &Policy{Store: store}

	result, err := p.Consent(ConsentRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read"},
	})
	require.NoError(t, err)
	require.True(t, result.Allow)
	require.Contains(t, result.RecordID, "auto-")
}

func TestConsentExplicitApprovalAllowedWithoutDelegation(t *testing.T) {
	store := newTestStore(t)
	p := &Policy{Store: store}

	result, err := p.Consent(ConsentRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		Scopes: []string{"payments:charge"}, Explicit: true,
	})
	require.NoError(t, err)
	require.True(t, result.Allow)
	require.Contains(t, result.RecordID, "exp-")
}

func TestConsentDeniesWithoutDelegationOrExplicit(t *testing.T) {
	store := newTestStore(t)
	p := &Policy{Store: store}

	result, err := p.Consent(ConsentRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		Scopes: []string{"payments:charge"},
	})
	require.NoError(t, err)
	require.False(t, result.Allow)
	require.Equal(t, "explicit_required", result.Reason)
}
