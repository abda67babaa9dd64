package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreScopeSegregation(t *testing.T) {
	st := NewSessionStore()
	defer st.Stop()

	now := time.Now()
	ticketsSession := &Session{
		SID:             "sid-tickets",
		RequestedScopes: []string{"tickets:read"},
		AccessToken:     "tok-a",
		Used:            true,
		ExpiresAt:       now.Add(time.Hour),
		ObtainedAt:      now,
	}
	st.Insert(ticketsSession)

	// Holding a tickets:read session must never satisfy a payments:charge request.
	require.Empty(t, st.ReadySessionsForScope("payments:charge"))
	require.Len(t, st.ReadySessionsForScope("tickets:read"), 1)

	paymentsSession := &Session{
		SID:             "sid-payments",
		RequestedScopes: []string{"payments:charge"},
		AccessToken:     "tok-b",
		Used:            true,
		ExpiresAt:       now.Add(time.Hour),
		ObtainedAt:      now.Add(time.Minute),
	}
	st.Insert(paymentsSession)

	require.Len(t, st.ReadySessionsForScope("payments:charge"), 1)
	require.Equal(t, "sid-payments", st.ReadySessionsForScope("payments:charge")[0].SID)
}

func TestSessionStoreReadySelectsMostRecentByObtainedAt(t *testing.T) {
	st := NewSessionStore()
	defer st.Stop()

	now := time.Now()
	older := &Session{SID: "older", RequestedScopes: []string{"echo:read"}, AccessToken: "a", Used: true, ExpiresAt: now.Add(time.Hour), ObtainedAt: now}
	newer := &Session{SID: "newer", RequestedScopes: []string{"echo:read"}, AccessToken: "b", Used: true, ExpiresAt: now.Add(time.Hour), ObtainedAt: now.Add(time.Minute)}

	st.Insert(older)
	st.Insert(newer)

	matches := st.ReadySessionsForScope("echo:read")
	require.Len(t, matches, 2)
	require.Equal(t, "newer", matches[0].SID)
}

func TestSessionNotReadyWithoutAccessTokenOrUsed(t *testing.T) {
	s := &Session{ExpiresAt: time.Now().Add(time.Hour)}
	require.False(t, s.Ready())

	s.AccessToken = "tok"
	require.False(t, s.Ready())

	s.Used = true
	require.True(t, s.Ready())

	s.ExpiresAt = time.Now().Add(-time.Hour)
	require.False(t, s.Ready())
}

func TestMutateSessionAtomicFinalize(t *testing.T) {
	st := NewSessionStore()
	defer st.Stop()

	s := &Session{SID: "sid-1"}
	st.Insert(s)

	err := st.MutateSession("sid-1", func(sess *Session) error {
		sess.AccessToken = "tok"
		sess.Used = true
		sess.ExpiresAt = time.Now().Add(time.Hour)
		return nil
	})
	require.NoError(t, err)
	require.True(t, st.Get("sid-1").Ready())

	err = st.MutateSession("does-not-exist", func(sess *Session) error { return nil })
	require.ErrorIs(t, err, errSessionNotFound)
}
