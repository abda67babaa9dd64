package authserver

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/giantswarm/iag/internal/oauthwire"
)

const accessTokenLifetime = 15 * time.Minute

// handleToken redeems a single-use authorization code: it verifies that
// client_id/redirect_uri match the stored request, verifies PKCE by
// comparing SHA-256(code_verifier) to the stored challenge, and on success
// mints an HS256 JWT whose audience follows the resource-indicator
// precedence the spec mandates: resource from the token request, then
// resource from the /authorize request, then the server's default
// audience.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusMethodNotAllowed, "method not allowed"), s.cfg.Debug)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "invalid form body"), s.cfg.Debug)
		return
	}

	if r.FormValue("grant_type") != "authorization_code" {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidGrant, http.StatusBadRequest, "unsupported grant_type"), s.cfg.Debug)
		return
	}

	code := r.FormValue("code")
	authReq := s.store.Redeem(code)
	if authReq == nil {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidGrant, http.StatusBadRequest, "unknown or already-redeemed code"), s.cfg.Debug)
		return
	}

	if r.FormValue("client_id") != authReq.ClientID || r.FormValue("redirect_uri") != authReq.RedirectURI {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidGrant, http.StatusBadRequest, "client_id/redirect_uri mismatch"), s.cfg.Debug)
		return
	}

	if !verifyPKCE(authReq.CodeChallenge, r.FormValue("code_verifier")) {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeBadPKCE, http.StatusBadRequest, "code_verifier does not match code_challenge"), s.cfg.Debug)
		return
	}

	audience := resolveAudience(r.FormValue("resource"), authReq.ResourceIndicator, s.cfg.DefaultAud)

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.cfg.Base,
		"sub":   "user-123",
		"scope": authReq.Scope,
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeBadGateway, http.StatusInternalServerError, err.Error()), s.cfg.Debug)
		return
	}

	writeJSON(w, http.StatusOK, oauthwire.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(accessTokenLifetime.Seconds()),
		Scope:       authReq.Scope,
	})
}

func verifyPKCE(storedChallenge, verifier string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedChallenge)) == 1
}

func resolveAudience(tokenResource, authorizeResource, defaultAud string) string {
	if tokenResource != "" {
		return tokenResource
	}
	if authorizeResource != "" {
		return authorizeResource
	}
	return defaultAud
}
