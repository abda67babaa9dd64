package authserver

import (
	"encoding/json"
	"net/http"
)

// Server wires the authorization server's endpoints onto an HTTP surface.
type Server struct {
	cfg   Config
	store *Store
}

// NewServer builds a Server around the given config and client/code store.
func NewServer(cfg Config, store *Store) *Server {
	return &Server{cfg: cfg, store: store}
}

// NewMux builds the AS's HTTP surface on a plain net/http.ServeMux, the
// same NewMux-then-HandleFunc layering the rest of this module's
// components use for their own HTTP surfaces.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleMetadata)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/authorize", s.handleAuthorize)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/introspect", s.handleIntrospect)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
