package oauthwire

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// StatePayload is the data bound into a signed OAuth state envelope. It ties
// an AS callback back to the gateway session that initiated it and lets the
// callback handler detect tampering or replay against a different session.
type StatePayload struct {
	SID        string `json:"sid"`
	IssuedAt   int64  `json:"iat"`
	Audience   string `json:"aud"`
	Scope      string `json:"scope"`
	Nonce      string `json:"n"`
	CtxDigest  string `json:"ctx_digest"`
}

var (
	ErrBadSignature  = errors.New("bad_signature")
	ErrMalformedState = errors.New("malformed_state")
)

// SignState encodes payload as base64url(json) and appends a base64url HMAC-SHA256
// tag over the payload json, separated by a dot: the gateway's opaque OAuth
// "state" parameter.
func SignState(payload StatePayload, secret []byte) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal state payload: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	tag := signTag(raw, secret)
	return encoded + "." + tag, nil
}

// VerifyState validates a state token produced by SignState and returns its
// payload. Signature comparison is constant-time to avoid timing side
// channels on the HMAC tag.
func VerifyState(token string, secret []byte) (StatePayload, error) {
	dot := indexOfDot(token)
	if dot < 0 {
		return StatePayload{}, ErrMalformedState
	}
	encoded, tag := token[:dot], token[dot+1:]

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return StatePayload{}, ErrMalformedState
	}

	expectedTag := signTag(raw, secret)
	if subtle.ConstantTimeCompare([]byte(tag), []byte(expectedTag)) != 1 {
		return StatePayload{}, ErrBadSignature
	}

	var payload StatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return StatePayload{}, ErrMalformedState
	}
	return payload, nil
}

func signTag(payloadJSON []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payloadJSON)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func indexOfDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// DigestContext hashes a free-form context map into a short digest so it can
// be bound into the state envelope without inflating the OAuth "state"
// parameter with arbitrary-sized request context.
func DigestContext(context map[string]interface{}) (string, error) {
	raw, err := json.Marshal(context)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	sum := sha256.Sum256(raw)
	return base64.RawURLEncoding.EncodeToString(sum[:8]), nil
}
