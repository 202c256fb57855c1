package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
	"github.com/lysnhq/lysn-backend/pkg/mailer"
)

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entity.User{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, email string, patch entity.UserPatch) (*entity.User, bool, error) {
	u, ok := r.users[email]
	if !ok {
		u = &entity.User{
			Email:        email,
			AuthMethod:   patch.InsertAuthMethod,
			PasswordHash: patch.InsertPasswordHash,
			CreatedAt:    time.Now(),
		}
		r.users[email] = u
	}
	patch.Apply(u)
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, !ok, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, hash string) error {
	u, ok := r.users[email]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordHash = hash
	return nil
}

type capturePublisher struct {
	jobs []mailer.EmailJob
}

func (p *capturePublisher) PublishJSON(_ context.Context, body any) error {
	job, ok := body.(mailer.EmailJob)
	if !ok {
		return errors.New("unexpected payload type")
	}
	p.jobs = append(p.jobs, job)
	return nil
}

// lastCode digs the OTP code out of the most recent otp_code job.
func (p *capturePublisher) lastCode(t *testing.T) string {
	t.Helper()
	for i := len(p.jobs) - 1; i >= 0; i-- {
		if p.jobs[i].Template == "otp_code" {
			code, _ := p.jobs[i].Data["Code"].(string)
			require.NotEmpty(t, code)
			return code
		}
	}
	t.Fatal("no otp_code job captured")
	return ""
}

func (p *capturePublisher) countTemplate(name string) int {
	n := 0
	for _, j := range p.jobs {
		if j.Template == name {
			n++
		}
	}
	return n
}

type fakeProvider struct {
	ident FederatedIdentity
	err   error
}

func (f *fakeProvider) AuthCodeURL(state string) string { return "https://provider.test/auth?state=" + state }

func (f *fakeProvider) FetchIdentity(context.Context, string) (FederatedIdentity, error) {
	return f.ident, f.err
}

type authFixture struct {
	svc   *AuthService
	repo  *fakeUserRepo
	mail  *capturePublisher
	prov  *fakeProvider
	clock *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStore()
	store.Now = func() time.Time { return now }

	otp := NewOTPManager(store, 5*time.Minute)
	otp.Now = func() time.Time { return now }
	sessions := NewSessionStore(store, 7*24*time.Hour)
	sessions.Now = func() time.Time { return now }

	repo := newFakeUserRepo()
	mail := &capturePublisher{}
	prov := &fakeProvider{}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &authFixture{
		svc: &AuthService{
			Users:     repo,
			OTP:       otp,
			Sessions:  sessions,
			Tickets:   store,
			TicketTTL: 10 * time.Minute,
			Provider:  prov,
			Mail:      mail,
			AppName:   "Lysn",
			Logger:    logger,
		},
		repo:  repo,
		mail:  mail,
		prov:  prov,
		clock: &now,
	}
}

func TestOTPSignupCreatesPasswordUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "new@x.com", "Ada"))
	code := f.mail.lastCode(t)

	res, err := f.svc.VerifyOTP(ctx, "new@x.com", code, "")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "new@x.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, entity.AuthPassword, res.User.AuthMethod)
	assert.NotEmpty(t, res.User.PasswordHash)

	// welcome mail carries the generated temporary password
	require.Equal(t, 1, f.mail.countTemplate("welcome"))
	var temp string
	for _, j := range f.mail.jobs {
		if j.Template == "welcome" {
			temp, _ = j.Data["TempPassword"].(string)
		}
	}
	require.NotEmpty(t, temp)
	assert.True(t, helpers.CheckPassword(res.User.PasswordHash, temp))

	u, err := f.svc.CurrentUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", u.Email)
}

func TestOTPReplayFails(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "new@x.com", "Ada"))
	code := f.mail.lastCode(t)

	_, err := f.svc.VerifyOTP(ctx, "new@x.com", code, "")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "new@x.com", code, "")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredChallenge)
}

func TestOTPReturningUserKeepsPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	first, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	// second OTP round for the same account: no new user, no second welcome
	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", ""))
	second, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	assert.Equal(t, 1, f.mail.countTemplate("welcome"))
	assert.Equal(t, first.User.PasswordHash, second.User.PasswordHash)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestLoginGenericFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	_, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	// wrong password and unknown account fail identically
	_, err = f.svc.Login(ctx, "a@x.com", "not-the-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@x.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithTempPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	signup, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	var temp string
	for _, j := range f.mail.jobs {
		if j.Template == "welcome" {
			temp, _ = j.Data["TempPassword"].(string)
		}
	}
	require.NotEmpty(t, temp)

	res, err := f.svc.Login(ctx, "a@x.com", temp)
	require.NoError(t, err)
	assert.NotEqual(t, signup.Token, res.Token)

	u, err := f.svc.CurrentUser(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestChangePasswordRequiresOldPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	_, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)
	var temp string
	for _, j := range f.mail.jobs {
		if j.Template == "welcome" {
			temp, _ = j.Data["TempPassword"].(string)
		}
	}

	err = f.svc.ChangePassword(ctx, "a@x.com", "wrong-old", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, "a@x.com", temp, "hunter2hunter2"))
	assert.Equal(t, 1, f.mail.countTemplate("password_changed"))

	_, err = f.svc.Login(ctx, "a@x.com", temp)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "a@x.com", "hunter2hunter2")
	require.NoError(t, err)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.mail.jobs)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	_, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	code := f.mail.lastCode(t)

	ticket, err := f.svc.VerifyPasswordReset(ctx, "a@x.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, ticket)

	require.NoError(t, f.svc.CompletePasswordReset(ctx, "a@x.com", ticket, "brand-new-pass"))

	_, err = f.svc.Login(ctx, "a@x.com", "brand-new-pass")
	require.NoError(t, err)

	// the ticket is single use
	err = f.svc.CompletePasswordReset(ctx, "a@x.com", ticket, "another-pass")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredChallenge)
}

func TestPasswordResetWrongCodeBurnsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	_, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	code := f.mail.lastCode(t)

	_, err = f.svc.VerifyPasswordReset(ctx, "a@x.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredChallenge)

	// the failed attempt consumed the challenge, the real code is dead too
	_, err = f.svc.VerifyPasswordReset(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredChallenge)
}

func TestFederatedLoginUpsert(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.prov.ident = FederatedIdentity{
		Email:         "g@x.com",
		Name:          "Grace",
		ProfilePicURL: "https://pics.test/g.png",
	}

	res, err := f.svc.FederatedLogin(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "g@x.com", res.User.Email)
	assert.Equal(t, "Grace", res.User.Name)
	assert.Equal(t, entity.AuthFederated, res.User.AuthMethod)
	assert.Equal(t, "https://pics.test/g.png", res.User.ProfilePicURL)
	assert.Equal(t, 1, f.mail.countTemplate("welcome_federated"))

	// second login: same account, fresh token, no second welcome
	again, err := f.svc.FederatedLogin(ctx, "auth-code")
	require.NoError(t, err)
	assert.NotEqual(t, res.Token, again.Token)
	assert.Equal(t, 1, f.mail.countTemplate("welcome_federated"))
}

func TestFederatedLoginUpstreamFailures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	f.prov.err = errors.New("exchange refused")
	_, err := f.svc.FederatedLogin(ctx, "bad-code")
	assert.ErrorIs(t, err, ErrUpstreamIdentity)

	f.prov.err = nil
	f.prov.ident = FederatedIdentity{Name: "No Email"}
	_, err = f.svc.FederatedLogin(ctx, "auth-code")
	assert.ErrorIs(t, err, ErrUpstreamIdentity)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestOTP(ctx, "a@x.com", "Ada"))
	res, err := f.svc.VerifyOTP(ctx, "a@x.com", f.mail.lastCode(t), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	_, err = f.svc.CurrentUser(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// logging out again is harmless
	require.NoError(t, f.svc.Logout(ctx, res.Token))
}

func TestFederatedLoginURLCarriesState(t *testing.T) {
	f := newAuthFixture(t)
	url := f.svc.FederatedLoginURL("xyzzy")
	assert.Contains(t, url, "state=xyzzy")
}
