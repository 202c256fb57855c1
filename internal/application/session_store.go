package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"

	"github.com/lysnhq/lysn-backend/pkg/helpers"
)

func sessionKey(email string) string   { return "session:email:" + email }
func sessionIndex(token string) string { return "session:token:" + token }

// sessionRecord is stored keyed by owner email; the token index maps the
// opaque bearer token back to the email. Keying the record by email means one
// live session per account: logging in again overwrites the record and the
// previous token dangles as a stale index entry, rejected on its next use.
type sessionRecord struct {
	Token      string    `json:"token"`
	LastActive time.Time `json:"last_active"`
}

// SessionStore issues opaque bearer tokens and enforces a sliding-window
// expiry: any authenticated use resets the countdown. Expiry is lazy; an
// expired record is evicted on the first access after the window closes.
type SessionStore struct {
	Store  kv.Store
	Window time.Duration
	Now    func() time.Time
}

func NewSessionStore(store kv.Store, window time.Duration) *SessionStore {
	return &SessionStore{Store: store, Window: window, Now: time.Now}
}

// Create mints a token for the email, replacing any existing session for the
// same account.
func (s *SessionStore) Create(ctx context.Context, email string) (string, error) {
	token, err := helpers.NewToken(32)
	if err != nil {
		return "", err
	}

	// Drop the previous token's index so it cannot resolve anymore.
	if raw, ok, _ := s.Store.Get(ctx, sessionKey(email)); ok {
		var old sessionRecord
		if json.Unmarshal([]byte(raw), &old) == nil && old.Token != "" {
			_ = s.Store.Delete(ctx, sessionIndex(old.Token))
		}
	}

	rec := sessionRecord{Token: token, LastActive: s.Now()}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.Store.Set(ctx, sessionKey(email), string(b), s.Window); err != nil {
		return "", err
	}
	if err := s.Store.Set(ctx, sessionIndex(token), email, s.Window); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves the token to its owning email, refreshing the
// activity timestamp. Unknown tokens, tokens displaced by a newer login, and
// sessions idle past the window all fail with ErrUnauthenticated.
func (s *SessionStore) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	email, ok, err := s.Store.Get(ctx, sessionIndex(token))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthenticated
	}
	raw, ok, err := s.Store.Get(ctx, sessionKey(email))
	if err != nil {
		return "", err
	}
	var rec sessionRecord
	if !ok || json.Unmarshal([]byte(raw), &rec) != nil || rec.Token != token {
		// Stale index: the record is gone or belongs to a newer token.
		_ = s.Store.Delete(ctx, sessionIndex(token))
		return "", ErrUnauthenticated
	}
	now := s.Now()
	if now.Sub(rec.LastActive) > s.Window {
		_ = s.Store.Delete(ctx, sessionKey(email))
		_ = s.Store.Delete(ctx, sessionIndex(token))
		return "", ErrUnauthenticated
	}

	rec.LastActive = now
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.Store.Set(ctx, sessionKey(email), string(b), s.Window); err != nil {
		return "", err
	}
	// Keep the index alive as long as the record.
	if err := s.Store.Set(ctx, sessionIndex(token), email, s.Window); err != nil {
		return "", err
	}
	return email, nil
}

// Revoke deletes the session for the token. Revoking an unknown token is a
// no-op.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	email, ok, err := s.Store.GetDel(ctx, sessionIndex(token))
	if err != nil || !ok {
		return err
	}
	// Only remove the record if it still belongs to this token.
	if raw, ok, _ := s.Store.Get(ctx, sessionKey(email)); ok {
		var rec sessionRecord
		if json.Unmarshal([]byte(raw), &rec) == nil && rec.Token == token {
			_ = s.Store.Delete(ctx, sessionKey(email))
		}
	}
	return nil
}
