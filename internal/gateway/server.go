package gateway

import (
	"encoding/json"
	"html"
	"net/http"

	"github.com/giantswarm/iag/internal/logging"
	"github.com/giantswarm/iag/internal/oauthwire"
)

// NewMux builds the gateway's HTTP surface on a plain net/http.ServeMux --
// the same routing layer the teacher wires its own OAuth endpoints on.
func NewMux(g *Gateway) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/session/start", g.handleSessionStart)
	mux.HandleFunc("/session/status", g.handleSessionStatus)
	mux.HandleFunc("/oauth/callback", g.handleOAuthCallback)
	mux.HandleFunc("/consent", g.handleConsentPage)
	mux.HandleFunc("/consent/approve", g.handleConsentApprove)
	mux.HandleFunc("/mcp/echo", g.handleTool("echo"))
	mux.HandleFunc("/mcp/tickets", g.handleTool("tickets"))
	mux.HandleFunc("/mcp/pay", g.handleTool("pay"))
	mux.HandleFunc("/debug/session/reset", g.handleDebugReset)
	mux.HandleFunc("/debug/session", g.handleDebugSession)

	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (g *Gateway) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		oauthwire.WriteError(w, errInvalidRequest("method not allowed"), g.cfg.Debug)
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		oauthwire.WriteError(w, errInvalidRequest("invalid JSON body"), g.cfg.Debug)
		return
	}

	resp, err := g.Start(r.Context(), req)
	if err != nil {
		logging.Warn("gateway", "session start failed: %v", err)
		oauthwire.WriteError(w, err, g.cfg.Debug)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	scope := r.URL.Query().Get("scope")

	ready := false
	if sid != "" {
		if s := g.sessions.Get(sid); s != nil {
			ready = s.Ready()
			if ready && scope != "" {
				ready = containsString(s.RequestedScopes, scope)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
}

func (g *Gateway) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	err := g.HandleCallback(r.Context(), r.URL.Query())
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(renderCallbackPage("Authentication Failed", html.EscapeString(err.Error()))))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderCallbackPage("Authentication Successful", "You can close this window and return to your agent.")))
}

func (g *Gateway) handleConsentPage(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(renderConsentPage(html.EscapeString(sid))))
}

func (g *Gateway) handleConsentApprove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SID string `json:"sid"`
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		// The consent page's HTML form posts sid form-encoded.
		body.SID = r.PostFormValue("sid")
	} else if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		oauthwire.WriteError(w, errInvalidRequest("invalid JSON body"), g.cfg.Debug)
		return
	}

	session := g.sessions.Get(body.SID)
	if session == nil {
		oauthwire.WriteError(w, errInvalidRequest("unknown session"), g.cfg.Debug)
		return
	}

	authorizeURL, err := g.buildAuthorizeURL(session)
	if err != nil {
		oauthwire.WriteError(w, errBadGateway(err.Error()), g.cfg.Debug)
		return
	}

	writeJSON(w, http.StatusOK, StartResponse{SID: session.SID, AuthorizeURL: authorizeURL})
}

func (g *Gateway) handleTool(toolID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}

		var jsonBody map[string]interface{}
		if r.Method == http.MethodPost && r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&jsonBody)
		}

		result, err := g.CallTool(r.Context(), toolID, r.Method, query, jsonBody)
		if err != nil {
			oauthwire.WriteError(w, err, g.cfg.Debug)
			return
		}

		if result.ContentType != "" {
			w.Header().Set("Content-Type", result.ContentType)
		}
		w.WriteHeader(result.StatusCode)
		_, _ = w.Write(result.Body)
	}
}

func (g *Gateway) handleDebugReset(w http.ResponseWriter, r *http.Request) {
	g.Reset()
	w.WriteHeader(http.StatusOK)
}

// handleDebugSession reports session metadata for local troubleshooting.
// Never includes the raw access token -- the credential firewall invariant
// holds in debug mode too, just like everywhere else.
func (g *Gateway) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	if !g.cfg.Debug {
		oauthwire.WriteError(w, errInvalidRequest("debug endpoints disabled"), false)
		return
	}

	sid := r.URL.Query().Get("sid")
	s := g.sessions.Get(sid)
	if s == nil {
		oauthwire.WriteError(w, errInvalidRequest("unknown session"), true)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sid":              s.SID,
		"tool_id":          s.ToolID,
		"requested_scopes": s.RequestedScopes,
		"ready":            s.Ready(),
		"used":             s.Used,
		"expires_at":       s.ExpiresAt,
		"obligations":      s.Obligations,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

func renderCallbackPage(title, message string) string {
	return `<!DOCTYPE html><html><head><title>` + html.EscapeString(title) + `</title></head>` +
		`<body><h1>` + html.EscapeString(title) + `</h1><p>` + message + `</p></body></html>`
}

func renderConsentPage(sid string) string {
	return `<!DOCTYPE html><html><head><title>Approve Access</title></head>` +
		`<body><h1>Approve Access</h1><p>sid=` + sid + `</p>` +
		`<form method="POST" action="/consent/approve"><input type="hidden" name="sid" value="` + sid + `"/>` +
		`<button type="submit">Approve</button></form></body></html>`
}
