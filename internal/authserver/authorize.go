package authserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/giantswarm/iag/internal/oauthwire"
)

// handleAuthorize validates the client, redirect URI, and S256 PKCE
// parameters, auto-approves consent (this demo AS has no login UI of its
// own -- the gateway's consent flow is what the spec exercises), stores an
// AuthorizationRequest keyed by a fresh code, and redirects back to the
// client with that code and the original state.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("response_type") != "code" {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "response_type must be code"), s.cfg.Debug)
		return
	}

	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	client := s.store.GetClient(clientID)
	if client == nil {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "unknown client_id"), s.cfg.Debug)
		return
	}
	if !client.AllowsRedirect(redirectURI) {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "redirect_uri not registered for client"), s.cfg.Debug)
		return
	}

	codeChallenge := q.Get("code_challenge")
	if q.Get("code_challenge_method") != "S256" || codeChallenge == "" {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeBadPKCE, http.StatusBadRequest, "code_challenge_method must be S256"), s.cfg.Debug)
		return
	}

	req := s.store.IssueCode(AuthorizationRequest{
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: "S256",
		ResourceIndicator:   q.Get("resource"),
		CreatedAt:           time.Now(),
	})

	redirect, err := url.Parse(redirectURI)
	if err != nil {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "invalid redirect_uri"), s.cfg.Debug)
		return
	}
	rq := redirect.Query()
	rq.Set("code", req.Code)
	rq.Set("state", req.State)
	redirect.RawQuery = rq.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}
