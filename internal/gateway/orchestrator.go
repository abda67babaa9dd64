package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

const defaultSubject = "user-123"
const defaultAgentID = "demo-agent"
const defaultTokenLifetime = 900 * time.Second

// Gateway ties together session storage, RS/AS discovery, ADP policy calls,
// and the PKCE/state machinery into the session-start and callback state
// machines described by the orchestration contract.
type Gateway struct {
	cfg        Config
	sessions   *SessionStore
	discoverer *Discoverer
	adp        *ADPClient

	clientIDMu sync.RWMutex
	clientID   string
}

// NewGateway constructs a Gateway from configuration. clientID starts out as
// the configured fallback and is overwritten once EnsureRegistered completes
// a successful RFC 7591 registration against the authorization server.
func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		cfg:        cfg,
		sessions:   NewSessionStore(),
		discoverer: NewDiscoverer(cfg.FallbackRSMeta),
		adp:        NewADPClient(cfg.ADPBase),
		clientID:   cfg.ClientID,
	}
}

// ClientID returns the client_id the gateway currently presents to the
// authorization server: the self-registered one once EnsureRegistered has
// succeeded, otherwise the configured fallback.
func (g *Gateway) ClientID() string {
	g.clientIDMu.RLock()
	defer g.clientIDMu.RUnlock()
	return g.clientID
}

func (g *Gateway) setClientID(id string) {
	g.clientIDMu.Lock()
	defer g.clientIDMu.Unlock()
	g.clientID = id
}

// StartRequest is the body of POST /session/start.
type StartRequest struct {
	ToolID  string                 `json:"tool_id"`
	Scope   string                 `json:"scope"`
	Context map[string]interface{} `json:"context"`
	Subject string                 `json:"subject,omitempty"`
	AgentID string                 `json:"agent_id,omitempty"`
}

// StartResponse is the successful body of POST /session/start.
type StartResponse struct {
	SID          string `json:"sid"`
	AuthorizeURL string `json:"authorize_url"`
}

// Start runs the session-start state machine: discovery, policy evaluation,
// consent decision, PKCE + signed state, session creation.
func (g *Gateway) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	if req.ToolID == "" || req.Scope == "" {
		return StartResponse{}, errInvalidRequest("tool_id and scope are required")
	}

	subject := req.Subject
	if subject == "" {
		subject = defaultSubject
	}
	agentID := req.AgentID
	if agentID == "" {
		agentID = defaultAgentID
	}

	rsMeta, asMeta, err := g.discoverer.Discover(ctx, g.cfg.UpstreamRS, g.cfg.ProbePath)
	if err != nil {
		logging.Warn("gateway", "discovery failed: %v", err)
		return StartResponse{}, errStartFailed(err.Error())
	}

	evalResp, err := g.adp.Evaluate(ctx, EvaluateRequest{
		Subject:         subject,
		AgentID:         agentID,
		ToolID:          req.ToolID,
		Audience:        rsMeta.Resource,
		RequestedScopes: []string{req.Scope},
		Context:         req.Context,
	})
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("adp evaluate failed: %v", err))
	}
	if !evalResp.Allow {
		return StartResponse{}, errDeniedByPolicy(evalResp.Reason)
	}

	scopes := evalResp.Scopes
	if len(scopes) == 0 {
		scopes = []string{req.Scope}
	}

	consentResp, err := g.adp.Consent(ctx, ConsentRequest{
		Subject:  subject,
		AgentID:  agentID,
		ToolID:   req.ToolID,
		Audience: rsMeta.Resource,
		Scopes:   scopes,
		Explicit: false,
	})
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("adp consent failed: %v", err))
	}

	pkce, err := oauthwire.GeneratePKCE()
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("generate pkce: %v", err))
	}

	sid := uuid.NewString()
	nonce, err := oauthwire.GenerateNonce(16)
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("generate nonce: %v", err))
	}

	scopeString := joinScopes(scopes)
	ctxDigest, err := oauthwire.DigestContext(req.Context)
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("digest context: %v", err))
	}

	stateToken, err := oauthwire.SignState(oauthwire.StatePayload{
		SID:       sid,
		IssuedAt:  time.Now().Unix(),
		Audience:  rsMeta.Resource,
		Scope:     scopeString,
		Nonce:     nonce,
		CtxDigest: ctxDigest,
	}, g.cfg.StateSecret)
	if err != nil {
		return StartResponse{}, errBadGateway(fmt.Sprintf("sign state: %v", err))
	}

	session := &Session{
		SID:             sid,
		Nonce:           nonce,
		ToolID:          req.ToolID,
		RequestedScopes: scopes,
		ScopeString:     scopeString,
		Context:         req.Context,
		RSMetadata:      rsMeta,
		ASMetadata:      asMeta,
		Audience:        rsMeta.Resource,
		Upstream:        g.cfg.UpstreamRS,
		PKCEVerifier:    pkce.Verifier,
		PKCEChallenge:   pkce.Challenge,
		StateToken:      stateToken,
		Obligations:         evalResp.Obligations.ToObligations(),
		ObligationsIssuedAt: time.Now(),
	}
	g.sessions.Insert(session)

	var authorizeURL string
	if consentResp.Allow {
		authorizeURL, err = g.buildAuthorizeURL(session)
		if err != nil {
			return StartResponse{}, errBadGateway(fmt.Sprintf("build authorize url: %v", err))
		}
	} else {
		authorizeURL = fmt.Sprintf("%s/consent?sid=%s", g.cfg.Base, sid)
	}

	return StartResponse{SID: sid, AuthorizeURL: authorizeURL}, nil
}

func (g *Gateway) buildAuthorizeURL(s *Session) (string, error) {
	authURL, err := url.Parse(s.ASMetadata.AuthorizationEndpoint)
	if err != nil {
		return "", err
	}

	q := authURL.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID())
	q.Set("redirect_uri", g.callbackURL())
	q.Set("scope", s.ScopeString)
	q.Set("state", s.StateToken)
	q.Set("code_challenge", s.PKCEChallenge)
	q.Set("code_challenge_method", "S256")
	q.Set("resource", s.Audience)
	authURL.RawQuery = q.Encode()

	return authURL.String(), nil
}

func (g *Gateway) callbackURL() string {
	return g.cfg.Base + "/oauth/callback"
}

// SessionForTool picks the freshest ready session authorizing the tool's
// required scope. Enforces per-scope session segregation: a session
// authorized for one scope is never substituted for another.
func (g *Gateway) SessionForTool(toolID string) (*Session, *toolConfig, error) {
	cfg, ok := lookupTool(toolID)
	if !ok {
		return nil, nil, errInvalidRequest("unknown tool " + toolID)
	}

	candidates := g.sessions.ReadySessionsForScope(cfg.RequiredScope)
	if len(candidates) == 0 {
		return nil, nil, errLoginRequired("no ready session for scope " + cfg.RequiredScope)
	}
	return candidates[0], &cfg, nil
}

// ClearToken removes a session's access token, forcing re-auth, used both
// for obligation TTL expiry and upstream 401/403 recovery.
func (g *Gateway) ClearToken(sid string) {
	_ = g.sessions.MutateSession(sid, func(s *Session) error {
		s.AccessToken = ""
		s.Used = false
		return nil
	})
}

// Reset clears the entire session table (debug-only).
func (g *Gateway) Reset() {
	g.sessions.Reset()
}

func joinScopes(scopes []string) string {
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
