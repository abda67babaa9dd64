package authorizer

import (
	"encoding/json"
	"net/http"

	"github.com/giantswarm/iag/internal/logging"
)

// Server wires the policy engine onto an HTTP surface.
type Server struct {
	policy *Policy
}

// NewServer builds a Server around the given store and strictness setting.
func NewServer(store *Store, strict bool) *Server {
	return &Server{policy: &Policy{Store: store, Strict: strict}}
}

// NewMux builds the ADP's HTTP surface on a plain net/http.ServeMux.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/delegations", s.handleDelegations)
	mux.HandleFunc("/evaluate", s.handleEvaluate)
	mux.HandleFunc("/consent", s.handleConsent)
	return mux
}

func (s *Server) handleDelegations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var sub DelegationSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		d, err := s.policy.SubmitDelegation(sub)
		if err != nil {
			logging.Warn("authorizer", "delegation rejected: %v", err)
			writeJSONError(w, http.StatusBadRequest, "invalid_delegation", err.Error())
			return
		}
		logging.Debug("authorizer", "delegation accepted subject=%s agent=%s tool=%s verified with key=%s", d.Subject, d.AgentID, d.ToolID, marshalJWK(sub.PublicJWK))
		writeJSON(w, http.StatusOK, d)
	case http.MethodGet:
		all, err := s.policy.Store.All()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, all)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
	}
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
		return
	}
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	result, err := s.policy.Evaluate(req)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
		return
	}
	var req ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	result, err := s.policy.Consent(req)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}
