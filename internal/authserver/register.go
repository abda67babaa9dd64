package authserver

import (
	"encoding/json"
	"net/http"

	"github.com/giantswarm/iag/internal/oauthwire"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusMethodNotAllowed, "method not allowed"), s.cfg.Debug)
		return
	}

	var req oauthwire.ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.RedirectURIs) == 0 {
		oauthwire.WriteError(w, oauthwire.NewCodedError(oauthwire.CodeInvalidRequest, http.StatusBadRequest, "redirect_uris is required"), s.cfg.Debug)
		return
	}

	client := s.store.RegisterClient(req.ClientName, req.RedirectURIs)
	writeJSON(w, http.StatusCreated, oauthwire.ClientRegistrationResponse{
		ClientID:     client.ClientID,
		ClientName:   client.ClientName,
		RedirectURIs: client.RedirectURIs,
	})
}
