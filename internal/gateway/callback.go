package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

// HandleCallback runs the callback state machine: verify the signed state in
// constant time, load and validate the session, exchange the code for a
// token at the AS, and mark the session ready.
func (g *Gateway) HandleCallback(ctx context.Context, query url.Values) error {
	if errParam := query.Get("error"); errParam != "" {
		return errInvalidRequest(fmt.Sprintf("authorization error: %s: %s", errParam, query.Get("error_description")))
	}

	code := query.Get("code")
	stateParam := query.Get("state")
	if code == "" || stateParam == "" {
		return errInvalidRequest("missing code or state")
	}

	payload, err := oauthwire.VerifyState(stateParam, g.cfg.StateSecret)
	if err != nil {
		logging.Warn("gateway", "callback state verification failed: %v", err)
		return errInvalidRequest(err.Error())
	}

	session := g.sessions.Get(payload.SID)
	if session == nil {
		return errInvalidRequest("unknown session")
	}
	if session.Used {
		return errInvalidRequest("session already used")
	}
	if session.Audience != payload.Audience || session.ScopeString != payload.Scope {
		return errInvalidRequest("state/session mismatch")
	}

	token, err := g.exchangeCode(ctx, session, code)
	if err != nil {
		logging.Error("gateway", err, "token exchange failed for sid=%s", logging.TruncateID(session.SID))
		return errBadGateway("token exchange failed")
	}

	return g.sessions.MutateSession(session.SID, func(s *Session) error {
		s.AccessToken = token.AccessToken
		s.RefreshToken = token.RefreshToken
		expiresIn := token.ExpiresIn
		if expiresIn <= 0 {
			expiresIn = int(defaultTokenLifetime.Seconds())
		}
		s.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
		s.ObtainedAt = time.Now()
		s.PKCEVerifier = ""
		s.Used = true
		return nil
	})
}

func (g *Gateway) exchangeCode(ctx context.Context, session *Session, code string) (oauthwire.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", g.callbackURL())
	data.Set("client_id", g.ClientID())
	data.Set("code_verifier", session.PKCEVerifier)
	data.Set("resource", session.Audience)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, session.ASMetadata.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return oauthwire.TokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return oauthwire.TokenResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return oauthwire.TokenResponse{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return oauthwire.TokenResponse{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token oauthwire.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return oauthwire.TokenResponse{}, fmt.Errorf("parse token response: %w", err)
	}
	return token, nil
}
