package resourceserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

type contextKey int

const introspectionContextKey contextKey = iota

// introspectionFromContext retrieves the token introspection result a
// requireScope call stashed on the request context, for handlers that need
// to report the caller's identity/scope (e.g. the echo tool).
func introspectionFromContext(ctx context.Context) oauthwire.IntrospectionResponse {
	info, _ := ctx.Value(introspectionContextKey).(oauthwire.IntrospectionResponse)
	return info
}

// requireScope wraps handler with bearer-token, audience, and scope
// enforcement. A missing/invalid token or audience mismatch returns 401
// with a WWW-Authenticate challenge; a valid token lacking the required
// scope returns 403 insufficient_scope.
func (s *Server) requireScope(scope string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.unauthorizedChallenge(w, "invalid_token", "missing bearer token")
			return
		}

		introspection, err := s.introspectToken(token)
		if err != nil {
			logging.Warn("resourceserver", "introspection call failed: %v", err)
			s.unauthorizedChallenge(w, "introspection_failed", "could not reach authorization server")
			return
		}

		if !introspection.Active {
			s.unauthorizedChallenge(w, "invalid_token", "token is not active")
			return
		}

		if introspection.Aud != s.cfg.ExpectedAud {
			s.unauthorizedChallenge(w, "bad_audience", "token audience does not match this resource")
			return
		}

		if !hasScope(introspection.Scope, scope) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"insufficient_scope"}`))
			return
		}

		ctx := context.WithValue(r.Context(), introspectionContextKey, introspection)
		handler(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func hasScope(scopeString, required string) bool {
	for _, s := range strings.Fields(scopeString) {
		if s == required {
			return true
		}
	}
	return false
}
