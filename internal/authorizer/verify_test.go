package authorizer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signDelegation(t *testing.T, priv ed25519.PrivateKey, claims DelegationClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func ed25519JWK(pub ed25519.PublicKey) PublicJWK {
	return PublicJWK{Kty: "OKP", Crv: "Ed25519", X: base64.RawURLEncoding.EncodeToString(pub)}
}

func TestVerifyDelegationAcceptsValidEdDSAEnvelope(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	claims := DelegationClaims{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read"}, NotAfter: time.Now().Add(time.Hour).Unix(), Issuer: "demo-issuer",
	}
	envelope := signDelegation(t, priv, claims)

	parsed, err := VerifyDelegation(envelope, ed25519JWK(pub))
	require.NoError(t, err)
	require.Equal(t, "user-123", parsed.Subject)
	require.Equal(t, []string{"tickets:read"}, parsed.Scopes)
}

func TestVerifyDelegationRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	envelope := signDelegation(t, priv, DelegationClaims{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		Scopes: []string{"tickets:read"}, NotAfter: time.Now().Add(time.Hour).Unix(),
	})

	_, err = VerifyDelegation(envelope, ed25519JWK(otherPub))
	require.Error(t, err)
}

func TestVerifyDelegationRejectsMissingRequiredFields(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	envelope := signDelegation(t, priv, DelegationClaims{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets",
		NotAfter: time.Now().Add(time.Hour).Unix(),
	})

	_, err = VerifyDelegation(envelope, ed25519JWK(pub))
	require.Error(t, err)
}

func TestVerifyDelegationRejectsMissingNotAfter(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	envelope := signDelegation(t, priv, DelegationClaims{
		Subject: "user-123", AgentID: "demo-agent", ToolID: "tickets", Scopes: []string{"tickets:read"},
	})

	_, err = VerifyDelegation(envelope, ed25519JWK(pub))
	require.Error(t, err)
}
