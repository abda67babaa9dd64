package authorizer

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DelegationClaims mirrors the compact signed delegation envelope's payload.
type DelegationClaims struct {
	Subject     string       `json:"subject"`
	AgentID     string       `json:"agent_id"`
	ToolID      string       `json:"tool_id"`
	Scopes      []string     `json:"scopes"`
	NotAfter    int64        `json:"not_after"`
	Issuer      string       `json:"iss"`
	Constraints *Constraints `json:"constraints,omitempty"`
	jwt.RegisteredClaims
}

// PublicJWK is the minimal subset of RFC 7517 fields needed to recover a
// verification key for EdDSA, ES256, or RS256 signed delegations.
type PublicJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	X5c []string `json:"x5c,omitempty"`
}

// VerifyDelegation checks the JWS envelope against the supplied public key
// material and returns the parsed delegation claims. It accepts EdDSA,
// ES256, and RS256 and tolerates ±5s of clock skew between issuer and
// verifier, per the delegation submission contract.
func VerifyDelegation(envelope string, jwk PublicJWK) (DelegationClaims, error) {
	key, err := publicKeyFromJWK(jwk)
	if err != nil {
		return DelegationClaims{}, fmt.Errorf("resolve verification key: %w", err)
	}

	var claims DelegationClaims
	_, err = jwt.ParseWithClaims(envelope, &claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodEd25519, *jwt.SigningMethodECDSA, *jwt.SigningMethodRSA:
			return key, nil
		default:
			return nil, fmt.Errorf("unsupported signing method %q", t.Method.Alg())
		}
	}, jwt.WithValidMethods([]string{"EdDSA", "ES256", "RS256"}), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return DelegationClaims{}, fmt.Errorf("verify delegation envelope: %w", err)
	}

	if claims.Subject == "" || claims.AgentID == "" || claims.ToolID == "" || len(claims.Scopes) == 0 {
		return DelegationClaims{}, fmt.Errorf("delegation claims missing required field")
	}
	if claims.NotAfter == 0 {
		return DelegationClaims{}, fmt.Errorf("delegation claims missing not_after")
	}
	if claims.Constraints != nil && claims.Constraints.MaxAmountCents < 0 {
		return DelegationClaims{}, fmt.Errorf("constraints.max_amount_cents must be positive")
	}

	return claims, nil
}

func publicKeyFromJWK(jwk PublicJWK) (interface{}, error) {
	switch jwk.Kty {
	case "OKP":
		if jwk.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported OKP curve %q", jwk.Crv)
		}
		raw, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("decode x: %w", err)
		}
		return ed25519.PublicKey(raw), nil
	case "EC":
		xb, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("decode x: %w", err)
		}
		yb, err := base64.RawURLEncoding.DecodeString(jwk.Y)
		if err != nil {
			return nil, fmt.Errorf("decode y: %w", err)
		}
		curve, err := ecCurveFor(jwk.Crv)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: bigIntFromBytes(xb), Y: bigIntFromBytes(yb)}, nil
	case "RSA":
		if len(jwk.X5c) > 0 {
			der, err := base64.StdEncoding.DecodeString(jwk.X5c[0])
			if err != nil {
				return nil, fmt.Errorf("decode x5c: %w", err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, fmt.Errorf("parse certificate: %w", err)
			}
			if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
				return pub, nil
			}
			return nil, fmt.Errorf("certificate does not contain an RSA key")
		}
		nb, err := base64.RawURLEncoding.DecodeString(jwk.N)
		if err != nil {
			return nil, fmt.Errorf("decode n: %w", err)
		}
		eb, err := base64.RawURLEncoding.DecodeString(jwk.E)
		if err != nil {
			return nil, fmt.Errorf("decode e: %w", err)
		}
		return &rsa.PublicKey{N: bigIntFromBytes(nb), E: int(bigIntFromBytes(eb).Int64())}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", jwk.Kty)
	}
}

// marshalJWK renders a JWK for debug-level audit logging of which key
// verified a delegation; public keys carry nothing sensitive to redact.
func marshalJWK(jwk PublicJWK) string {
	b, _ := json.Marshal(jwk)
	return string(b)
}
