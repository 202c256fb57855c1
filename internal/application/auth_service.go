package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
	repo "github.com/lysnhq/lysn-backend/internal/domain/repository"
	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
	"github.com/lysnhq/lysn-backend/pkg/mailer"
)

var (
	// ErrInvalidCredentials covers wrong password and unknown email alike,
	// deliberately generic to avoid account enumeration on login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredChallenge covers absent, mismatched, and expired
	// OTP codes and spent reset tickets.
	ErrInvalidOrExpiredChallenge = errors.New("invalid or expired code")
	// ErrUnauthenticated covers missing, unknown, displaced, and idle-expired
	// session tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUpstreamIdentity covers a failed federated exchange or a profile
	// with no email claim.
	ErrUpstreamIdentity = errors.New("federated login failed")
	// ErrUserNotFound is returned where policy allows admitting an email is
	// unregistered (the reset flow; see RequestPasswordReset).
	ErrUserNotFound = errors.New("user not found")
)

func resetTicketKey(email string) string { return "reset:ticket:" + email }

// EmailPublisher enqueues an email job for the worker. Satisfied by
// helpers.RabbitPublisher.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// AuthService composes the identity directory, OTP manager, credential
// vault, and session store into the authentication flows. It only reads and
// calls; each owned store mutates its own entities.
type AuthService struct {
	Users     repo.UserRepository
	OTP       *OTPManager
	Sessions  *SessionStore
	Tickets   kv.Store
	TicketTTL time.Duration
	Provider  IdentityProvider
	Mail      EmailPublisher // nil disables delivery (codes are logged instead)
	AppName   string
	Logger    *logrus.Logger
}

// SessionResult is what every successful authentication flow hands back.
type SessionResult struct {
	Token string
	User  *entity.User
}

func (s *AuthService) templateData(name string, extra map[string]any) map[string]any {
	data := map[string]any{"AppName": s.AppName, "Name": name}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// send enqueues a template email. Delivery failures are logged, never
// propagated; the OTP mail is the exception and goes through sendOTP.
func (s *AuthService) send(ctx context.Context, to, template string, data map[string]any) {
	if err := s.trySend(ctx, to, template, data); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"to": to, "template": template}).Warn("email enqueue failed")
	}
}

func (s *AuthService) trySend(ctx context.Context, to, template string, data map[string]any) error {
	if s.Mail == nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"to": to, "template": template}).Info("mail disabled; skipping delivery")
		}
		return nil
	}
	return s.Mail.PublishJSON(ctx, mailer.EmailJob{To: to, Template: template, Data: data})
}

// RequestOTP issues a challenge and mails the code. The mail failure
// propagates: the caller cannot complete the flow without the code.
func (s *AuthService) RequestOTP(ctx context.Context, email, name string) error {
	code, err := s.OTP.Issue(ctx, email, name)
	if err != nil {
		return err
	}
	return s.trySend(ctx, email, "otp_code", s.templateData(name, map[string]any{
		"Code":           code,
		"ExpiresMinutes": int(s.OTP.TTL.Minutes()),
	}))
}

// VerifyOTP consumes the challenge and, on success, upserts the user and
// mints a session. A first-time user becomes password-based with a generated
// temporary password delivered in the welcome mail.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code, name string) (*SessionResult, error) {
	hintName, err := s.OTP.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = hintName
	}

	tempPassword, err := helpers.GenerateTempPassword(12)
	if err != nil {
		return nil, err
	}
	tempHash, err := helpers.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	u, created, err := s.Users.Upsert(ctx, email, entity.UserPatch{
		Name:               &name,
		InsertAuthMethod:   entity.AuthPassword,
		InsertPasswordHash: tempHash,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.send(ctx, email, "welcome", s.templateData(u.Name, map[string]any{
			"TempPassword": tempPassword,
		}))
	}

	token, err := s.Sessions.Create(ctx, email)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, User: u}, nil
}

// Login authenticates a password credential.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	token, err := s.Sessions.Create(ctx, email)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, User: u}, nil
}

// ChangePassword re-verifies the old password even though the caller holds a
// valid session; a hijacked session alone must not be enough for takeover.
func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}
	s.send(ctx, email, "password_changed", s.templateData(u.Name, nil))
	return nil
}

// RequestPasswordReset issues an OTP scoped to an existing account. Unlike
// RequestOTP it fails with ErrUserNotFound for unregistered emails — an
// intentional enumeration trade-off inherited from the signup/reset split;
// flag to product/security before changing either side.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	code, err := s.OTP.Issue(ctx, email, u.Name)
	if err != nil {
		return err
	}
	return s.trySend(ctx, email, "otp_code", s.templateData(u.Name, map[string]any{
		"Code":           code,
		"ExpiresMinutes": int(s.OTP.TTL.Minutes()),
	}))
}

// VerifyPasswordReset consumes the challenge and returns a single-use reset
// ticket. It confirms possession only: no session is minted and no password
// changes until CompletePasswordReset.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, email, code string) (string, error) {
	if _, err := s.OTP.Verify(ctx, email, code); err != nil {
		return "", err
	}
	ticket, err := helpers.NewToken(32)
	if err != nil {
		return "", err
	}
	if err := s.Tickets.Set(ctx, resetTicketKey(email), ticket, s.TicketTTL); err != nil {
		return "", err
	}
	return ticket, nil
}

// CompletePasswordReset sets a new password against a valid reset ticket.
// The old-password check is skipped: the reset flow exists for callers who
// no longer have it.
func (s *AuthService) CompletePasswordReset(ctx context.Context, email, ticket, newPassword string) error {
	ok, err := s.Tickets.CompareAndDelete(ctx, resetTicketKey(email), ticket)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredChallenge
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}
	u, _ := s.Users.GetByEmail(ctx, email)
	name := ""
	if u != nil {
		name = u.Name
	}
	s.send(ctx, email, "password_changed", s.templateData(name, nil))
	return nil
}

// FederatedLoginURL builds the provider consent URL for the given state.
func (s *AuthService) FederatedLoginURL(state string) string {
	return s.Provider.AuthCodeURL(state)
}

// FederatedLogin exchanges the authorization code, requires a non-empty
// email claim, upserts the user as federated, and mints a session. The
// welcome mail goes out only on first login.
func (s *AuthService) FederatedLogin(ctx context.Context, code string) (*SessionResult, error) {
	ident, err := s.Provider.FetchIdentity(ctx, code)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("federated identity exchange failed")
		}
		return nil, ErrUpstreamIdentity
	}
	if ident.Email == "" {
		return nil, ErrUpstreamIdentity
	}

	method := entity.AuthFederated
	u, created, err := s.Users.Upsert(ctx, ident.Email, entity.UserPatch{
		Name:             &ident.Name,
		ProfilePicURL:    &ident.ProfilePicURL,
		AuthMethod:       &method,
		InsertAuthMethod: entity.AuthFederated,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.send(ctx, ident.Email, "welcome_federated", s.templateData(u.Name, nil))
	}

	token, err := s.Sessions.Create(ctx, ident.Email)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, User: u}, nil
}

// CurrentUser resolves a session token to its user record, refreshing the
// session's activity window.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*entity.User, error) {
	email, err := s.Sessions.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Logout revokes the session. Idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Sessions.Revoke(ctx, token)
}
