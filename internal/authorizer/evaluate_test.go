package authorizer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adp.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEvaluateDemoModeAllowsWithoutDelegation(t *testing.T) {
	store := newTestStore(t)
	p := &Policy{Store: store, Strict: false}

	result, err := p.Evaluate(EvaluateRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "echo",
		RequestedScopes: []string{"echo:read"},
	})
	require.NoError(t, err)
	require.True(t, result.Allow)
	require.Equal(t, 900, result.Obligations.TTL)
}

func TestEvaluateStrictModeDeniesWithoutDelegation(t *testing.T) {
	store := newTestStore(t)
	p := &Policy{Store: store, Strict: true}

	result, err := p.Evaluate(EvaluateRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		RequestedScopes: []string{"payments:charge"},
	})
	require.NoError(t, err)
	require.False(t, result.Allow)
	require.Equal(t, "no_delegation", result.Reason)
}

func TestEvaluateIntersectsRequestedAndDelegatedScopes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		Scopes: []string{"payments:charge", "payments:refund"}, NotAfter: time.Now().Add(time.Hour),
	}))
	p := &Policy{Store: store, Strict: true}

	result, err := p.Evaluate(EvaluateRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		RequestedScopes: []string{"payments:charge"},
	})
	require.NoError(t, err)
	require.True(t, result.Allow)
	require.Equal(t, []string{"payments:charge"}, result.Scopes)
}

func TestEvaluateAmountConstraintDenies(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		Scopes: []string{"payments:charge"}, NotAfter: time.Now().Add(time.Hour),
		Constraints: &Constraints{MaxAmountCents: 2000, Merchants: []string{"mcp-tix"}},
	}))
	p := &Policy{Store: store, Strict: true}

	result, err := p.Evaluate(EvaluateRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		RequestedScopes: []string{"payments:charge"},
		Context:         map[string]interface{}{"amount_cents": float64(3000), "merchant_id": "mcp-tix"},
	})
	require.NoError(t, err)
	require.False(t, result.Allow)
	require.Equal(t, "amount_exceeds_max", result.Reason)
}

func TestEvaluateMerchantAllowlistDenies(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		Scopes: []string{"payments:charge"}, NotAfter: time.Now().Add(time.Hour),
		Constraints: &Constraints{Merchants: []string{"mcp-tix"}},
	}))
	p := &Policy{Store: store, Strict: true}

	result, err := p.Evaluate(EvaluateRequest{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "pay",
		RequestedScopes: []string{"payments:charge"},
		Context:         map[string]interface{}{"merchant_id": "evil-shop"},
	})
	require.NoError(t, err)
	require.False(t, result.Allow)
	require.Equal(t, "merchant_not_allowed", result.Reason)
}

func TestDelegationUpsertReplacesPriorRecord(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read"}, NotAfter: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read", "tickets:write"}, NotAfter: time.Now().Add(2 * time.Hour),
	}))

	d, err := store.Find("user-123", "demo-agent", "tickets")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.ElementsMatch(t, []string{"tickets:read", "tickets:write"}, d.Scopes)

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStoreFindReturnsNilForExpiredDelegation(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(Delegation{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "echo",
		Scopes: []string{"echo:read"}, NotAfter: time.Now().Add(-time.Hour),
	}))

	d, err := store.Find("user-123", "demo-agent", "echo")
	require.NoError(t, err)
	require.Nil(t, d)
}
