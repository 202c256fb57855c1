package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStore()
	store.Now = func() time.Time { return now }
	s := NewSessionStore(store, 7*24*time.Hour)
	s.Now = func() time.Time { return now }
	return s, &now
}

func TestSessionCreateAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSessionStore(t)

	token, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestSessionExpiresAfterSevenIdleDays(t *testing.T) {
	ctx := context.Background()
	s, now := newTestSessionStore(t)

	token, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)

	*now = now.Add(8 * 24 * time.Hour)

	_, err = s.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// lazy eviction: the record is gone, not just rejected
	_, err = s.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionSlidingWindowRefresh(t *testing.T) {
	ctx := context.Background()
	s, now := newTestSessionStore(t)

	token, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)

	// day 6: inside the window, refreshes the countdown
	*now = now.Add(6 * 24 * time.Hour)
	_, err = s.Authenticate(ctx, token)
	require.NoError(t, err)

	// day 12: six days after the refresh, still valid
	*now = now.Add(6 * 24 * time.Hour)
	email, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestSessionRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSessionStore(t)

	require.NoError(t, s.Revoke(ctx, "unknown-token"))
	require.NoError(t, s.Revoke(ctx, ""))

	token, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, token))

	_, err = s.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, s.Revoke(ctx, token))
}

func TestSessionSecondLoginDisplacesFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSessionStore(t)

	first, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)
	second, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = s.Authenticate(ctx, first)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	email, err := s.Authenticate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestSessionRevokeDoesNotTouchNewerSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSessionStore(t)

	first, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)
	second, err := s.Create(ctx, "a@x.com")
	require.NoError(t, err)

	// revoking the displaced token must not kill the live session
	require.NoError(t, s.Revoke(ctx, first))

	_, err = s.Authenticate(ctx, second)
	require.NoError(t, err)
}

func TestSessionEmptyToken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSessionStore(t)

	_, err := s.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
