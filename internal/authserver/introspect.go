package authserver

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/giantswarm/iag/internal/oauthwire"
)

// handleIntrospect accepts a token from the form body (RFC 7662) or a
// bearer header and returns an {active, scope, sub, aud, iss, iat, exp,
// token_type} document, or {active:false, error} on any verification
// failure -- introspection never returns a 4xx for a merely-invalid token,
// only for a malformed request.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusMethodNotAllowed, "method not allowed"), s.cfg.Debug)
		return
	}

	token := extractToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, oauthwire.IntrospectionResponse{Active: false, Error: "missing token"})
		return
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(s.cfg.Base))
	if err != nil || !parsed.Valid {
		writeJSON(w, http.StatusOK, oauthwire.IntrospectionResponse{Active: false, Error: "invalid_token"})
		return
	}

	resp := oauthwire.IntrospectionResponse{
		Active:    true,
		Scope:     stringClaim(claims, "scope"),
		Sub:       stringClaim(claims, "sub"),
		Aud:       stringClaim(claims, "aud"),
		Iss:       stringClaim(claims, "iss"),
		TokenType: "Bearer",
	}
	if iat, ok := claims["iat"].(float64); ok {
		resp.Iat = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		resp.Exp = int64(exp)
	}

	writeJSON(w, http.StatusOK, resp)
}

func extractToken(r *http.Request) string {
	if err := r.ParseForm(); err == nil {
		if t := r.FormValue("token"); t != "" {
			return t
		}
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
