package gateway

import (
	"sync"
	"time"

	"github.com/giantswarm/iag/internal/oauthwire"
	"github.com/giantswarm/iag/internal/logging"
)

// Obligations is the set of run-time constraints ADP attaches to a session,
// enforced on every tool call before it is forwarded upstream.
type Obligations struct {
	BindOrder         string
	MaxAmountCents     int
	HasMaxAmountCents  bool
	MerchantAllowlist  []string
	TTLSeconds         int
}

// Session is the gateway's in-memory record of a single user-authorized
// capability grant. Only ready sessions (access_token set, used, not
// expired) serve tool traffic.
type Session struct {
	SID        string
	Nonce      string
	ToolID     string
	RequestedScopes []string
	ScopeString     string
	Context         map[string]interface{}

	RSMetadata *oauthwire.ProtectedResourceMetadata
	ASMetadata *oauthwire.AuthorizationServerMetadata
	Audience   string
	Upstream   string

	PKCEVerifier  string
	PKCEChallenge string
	StateToken    string

	Obligations         Obligations
	ObligationsIssuedAt time.Time

	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	ObtainedAt   time.Time

	Used  bool
}

// Ready reports whether a session currently carries a usable access token.
func (s *Session) Ready() bool {
	return s.AccessToken != "" && s.Used && time.Now().Before(s.ExpiresAt)
}

// SessionStore is a concurrency-safe in-memory table of sessions, keyed by
// sid, with a background goroutine evicting sessions whose token has
// expired -- the same shape as the teacher's TokenStore, generalized from
// (session,issuer,scope)-keyed tokens to whole session records.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewSessionStore creates an empty session store and starts its cleanup loop.
func NewSessionStore() *SessionStore {
	st := &SessionStore{
		sessions:        make(map[string]*Session),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go st.cleanupLoop()
	return st
}

// Insert adds a new session to the store.
func (st *SessionStore) Insert(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.SID] = s
	logging.Debug("gateway", "inserted session sid=%s tool=%s scope=%s", logging.TruncateID(s.SID), s.ToolID, s.ScopeString)
}

// Get retrieves a session by sid. Returns nil if absent.
func (st *SessionStore) Get(sid string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[sid]
}

// MutateSession runs fn against the session under the table's write lock so
// finalize-on-callback is atomic with respect to concurrent tool-call reads
// of the same sid: a reader either observes the pre-mutation or
// post-mutation snapshot, never a partial write.
func (st *SessionStore) MutateSession(sid string, fn func(*Session) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sid]
	if !ok {
		return errSessionNotFound
	}
	return fn(s)
}

// ReadySessionsForScope returns a copy of every ready session whose requested
// scopes contain the given scope, most-recently-obtained first. The copies are
// taken under the read lock, so callers read a consistent snapshot even while
// MutateSession changes the stored record.
func (st *SessionStore) ReadySessionsForScope(scope string) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var matches []*Session
	for _, s := range st.sessions {
		if !s.Ready() {
			continue
		}
		if containsString(s.RequestedScopes, scope) {
			snapshot := *s
			matches = append(matches, &snapshot)
		}
	}

	// Most recent obtained_at wins ties; deterministic within a process.
	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && matches[j-1].ObtainedAt.Before(matches[j].ObtainedAt) {
			matches[j-1], matches[j] = matches[j], matches[j-1]
			j--
		}
	}
	return matches
}

// Reset removes every session from the store (debug-only bulk delete).
func (st *SessionStore) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	count := len(st.sessions)
	st.sessions = make(map[string]*Session)
	logging.Debug("gateway", "reset session table, removed %d sessions", count)
}

// Stop halts the background cleanup goroutine.
func (st *SessionStore) Stop() {
	close(st.stopCleanup)
}

func (st *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(st.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.cleanup()
		case <-st.stopCleanup:
			return
		}
	}
}

func (st *SessionStore) cleanup() {
	st.mu.Lock()
	defer st.mu.Unlock()

	count := 0
	now := time.Now()
	for sid, s := range st.sessions {
		if s.AccessToken != "" && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt) {
			delete(st.sessions, sid)
			count++
		}
	}
	if count > 0 {
		logging.Debug("gateway", "cleaned up %d expired sessions", count)
	}
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
