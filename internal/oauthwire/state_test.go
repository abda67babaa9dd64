package oauthwire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignStateVerifyStateRoundTrip(t *testing.T) {
	secret := []byte("gateway-process-secret")
	payload := StatePayload{
		SID:       "sid-123",
		IssuedAt:  1700000000,
		Audience:  "https://rs.example/",
		Scope:     "echo:read",
		Nonce:     "nonce-abc",
		CtxDigest: "deadbeef",
	}

	token, err := SignState(payload, secret)
	require.NoError(t, err)

	got, err := VerifyState(token, secret)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerifyStateRejectsTamperedSignature(t *testing.T) {
	secret := []byte("gateway-process-secret")
	token, err := SignState(StatePayload{SID: "sid-123"}, secret)
	require.NoError(t, err)

	tampered := token + "x"
	_, err = VerifyState(tampered, secret)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyStateRejectsWrongSecret(t *testing.T) {
	token, err := SignState(StatePayload{SID: "sid-123"}, []byte("secret-a"))
	require.NoError(t, err)

	_, err = VerifyState(token, []byte("secret-b"))
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyStateRejectsMalformedToken(t *testing.T) {
	_, err := VerifyState("not-a-valid-token", []byte("secret"))
	require.ErrorIs(t, err, ErrMalformedState)
}

func TestChallengeFromVerifierIsDeterministic(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)
	require.Equal(t, pkce.Challenge, ChallengeFromVerifier(pkce.Verifier))
	require.GreaterOrEqual(t, len(pkce.Verifier), 43)
}
