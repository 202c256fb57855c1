package application

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"
)

func otpKey(email string) string { return "otp:" + email }

// otpChallenge is the stored record for one issued code.
type otpChallenge struct {
	Code      string    `json:"code"`
	Name      string    `json:"name,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPManager issues and verifies short-lived numeric challenges keyed by
// email. At most one challenge is live per email; issuing replaces any
// unconsumed prior challenge.
type OTPManager struct {
	Store kv.Store
	TTL   time.Duration
	Now   func() time.Time
}

func NewOTPManager(store kv.Store, ttl time.Duration) *OTPManager {
	return &OTPManager{Store: store, TTL: ttl, Now: time.Now}
}

// GenOTPCode returns a 6-digit decimal code uniform over 100000-999999.
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// Issue generates a code and stores the challenge, superseding any existing
// one for the email. The name hint is carried through to user creation on
// successful verification.
func (m *OTPManager) Issue(ctx context.Context, email, name string) (string, error) {
	code, err := GenOTPCode()
	if err != nil {
		return "", err
	}
	now := m.Now()
	ch := otpChallenge{
		Code:      code,
		Name:      name,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.TTL),
	}
	b, err := json.Marshal(ch)
	if err != nil {
		return "", err
	}
	if err := m.Store.Set(ctx, otpKey(email), string(b), m.TTL); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the submitted code against the live challenge. The challenge
// is consumed on the attempt whatever the outcome: a mismatch or an expired
// code burns it, and a fresh Issue is required before the next try. This
// bounds guessing to one attempt per issued code. On success the stored name
// hint is returned.
func (m *OTPManager) Verify(ctx context.Context, email, submitted string) (string, error) {
	raw, ok, err := m.Store.GetDel(ctx, otpKey(email))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidOrExpiredChallenge
	}
	var ch otpChallenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return "", ErrInvalidOrExpiredChallenge
	}
	if ch.Code != submitted {
		return "", ErrInvalidOrExpiredChallenge
	}
	if m.Now().After(ch.ExpiresAt) {
		return "", ErrInvalidOrExpiredChallenge
	}
	return ch.Name, nil
}
