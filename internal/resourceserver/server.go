package resourceserver

import "net/http"

// Server wires the resource server's tool endpoints and RFC 9728 metadata
// onto an HTTP surface, enforcing bearer/audience/scope via AS
// introspection on every tool call.
type Server struct {
	cfg Config
}

// NewServer builds a Server around the given config.
func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// NewMux builds the RS's HTTP surface on a plain net/http.ServeMux.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/.well-known/oauth-protected-resource", s.handleMetadata)
	mux.HandleFunc("/mcp/echo", s.requireScope("echo:read", s.handleEcho))
	mux.HandleFunc("/tickets", s.requireScope("tickets:read", s.handleTickets))
	mux.HandleFunc("/orders/", s.requireScope("payments:charge", s.handlePay))
	return mux
}
