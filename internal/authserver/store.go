package authserver

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds registered clients and pending authorization codes, the two
// pieces of server-side state the AS needs between /authorize and /token.
// Code redemption is compare-and-delete: Redeem looks up and deletes the
// entry atomically under a single write lock, so a code can never be
// exchanged twice even under concurrent /token calls.
type Store struct {
	mu      sync.RWMutex
	clients map[string]*RegisteredClient
	codes   map[string]*AuthorizationRequest
}

// NewStore returns an empty in-memory client/code store.
func NewStore() *Store {
	return &Store{
		clients: make(map[string]*RegisteredClient),
		codes:   make(map[string]*AuthorizationRequest),
	}
}

// RegisterClient creates a new public client with a fresh client_id.
func (s *Store) RegisterClient(name string, redirectURIs []string) *RegisteredClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &RegisteredClient{
		ClientID:     uuid.NewString(),
		ClientName:   name,
		RedirectURIs: redirectURIs,
	}
	s.clients[c.ClientID] = c
	return c
}

// GetClient looks up a registered client by id.
func (s *Store) GetClient(clientID string) *RegisteredClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[clientID]
}

// IssueCode stores a fresh AuthorizationRequest under a newly generated
// code and returns it.
func (s *Store) IssueCode(req AuthorizationRequest) *AuthorizationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Code = uuid.NewString()
	stored := req
	s.codes[req.Code] = &stored
	return &stored
}

// Redeem atomically looks up and removes the AuthorizationRequest for code,
// returning nil if the code is unknown or already redeemed.
func (s *Store) Redeem(code string) *AuthorizationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.codes[code]
	if !ok {
		return nil
	}
	delete(s.codes, code)
	return req
}
