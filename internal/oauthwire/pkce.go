package oauthwire

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE holds a PKCE verifier/challenge pair for the S256 method.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a fresh 256-bit verifier and its S256 challenge.
func GeneratePKCE() (PKCE, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, fmt.Errorf("generate pkce verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	return PKCE{
		Verifier:  verifier,
		Challenge: ChallengeFromVerifier(verifier),
	}, nil
}

// ChallengeFromVerifier computes the S256 code_challenge for a given verifier.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateNonce returns a random URL-safe token suitable for CSRF nonces,
// session ids composed by hand, or other one-off random values.
func GenerateNonce(numBytes int) (string, error) {
	raw := make([]byte, numBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
