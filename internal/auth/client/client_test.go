package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/auth/users"
	"auth-portal/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	user auth.User
	err  error
}

func (f *fakeCredentials) Register(_ context.Context, name, email, _ string) (auth.User, error) {
	if f.err != nil {
		return auth.User{}, f.err
	}
	return auth.User{ID: "u-1", Name: name, Email: email, Role: auth.DefaultRole}, nil
}

func (f *fakeCredentials) Authenticate(context.Context, string, string) (auth.User, error) {
	return f.user, f.err
}

type otpCall struct {
	email string
	typ   otp.Type
	code  string
}

type fakeOTP struct {
	sent     []otpCall
	verified []otpCall
	err      error
}

func (f *fakeOTP) Send(_ context.Context, email string, typ otp.Type) error {
	f.sent = append(f.sent, otpCall{email: email, typ: typ})
	return f.err
}

func (f *fakeOTP) Verify(_ context.Context, email string, typ otp.Type, code string) error {
	f.verified = append(f.verified, otpCall{email: email, typ: typ, code: code})
	return f.err
}

type fakeUsers struct {
	byEmail  map[string]auth.User
	created  []users.NewUser
	verified []string
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (auth.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (auth.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, nu users.NewUser) (auth.User, error) {
	f.created = append(f.created, nu)
	u := auth.User{ID: "u-new", Name: nu.Name, Email: nu.Email, EmailVerified: nu.EmailVerified, Role: auth.DefaultRole}
	if f.byEmail == nil {
		f.byEmail = map[string]auth.User{}
	}
	f.byEmail[nu.Email] = u
	return u, nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id string) error {
	f.verified = append(f.verified, id)
	return nil
}

type fakeResolver struct {
	identity *auth.Identity
}

func (f *fakeResolver) Resolve(_ context.Context, identity *auth.Identity) (auth.User, error) {
	f.identity = identity
	return auth.User{ID: "u-gh", Email: identity.Email, Role: auth.DefaultRole}, nil
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "github" }

func (fakeProvider) AuthCodeURL(state, challenge string) string {
	return "https://github.example.com/authorize?state=" + state + "&code_challenge=" + challenge
}

func (fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*auth.Identity, error) {
	if code != "good" || verifier != "v" {
		return nil, errors.New("exchange failed")
	}
	return &auth.Identity{Provider: "github", ProviderUserID: "42", Email: "jane@example.com", EmailVerified: true}, nil
}

type fixture struct {
	client   *Client
	creds    *fakeCredentials
	otp      *fakeOTP
	users    *fakeUsers
	resolver *fakeResolver
	sessions *session.RedisStore
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		creds:    &fakeCredentials{},
		otp:      &fakeOTP{},
		users:    &fakeUsers{},
		resolver: &fakeResolver{},
		sessions: session.NewRedisStore(rdb),
		redis:    mr,
	}
	f.client = New(Deps{
		Credentials: f.creds,
		OTP:         f.otp,
		Users:       f.users,
		Resolver:    f.resolver,
		Providers:   provider.NewRegistry(fakeProvider{}),
		Sessions:    f.sessions,
		SessionTTL:  time.Hour,
	})
	return f
}

func TestSignUpEmailStartsSessionWithDefaultRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.client.SignUpEmail(ctx, "Jane", "jane@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.Session.UserID)
	assert.Equal(t, auth.DefaultRole, res.Session.Role)
	assert.True(t, f.redis.Exists("session:"+res.Session.SessionID))

	sess, err := f.client.GetSession(ctx, res.Session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user", sess.Role)
	assert.Equal(t, "jane@example.com", sess.Email)
}

func TestSignUpEmailPropagatesError(t *testing.T) {
	f := newFixture(t)
	f.creds.err = auth.ErrUserAlreadyExists

	_, err := f.client.SignUpEmail(context.Background(), "Jane", "jane@example.com", "supersecret")
	assert.Equal(t, auth.CodeUserAlreadyExists, auth.Code(err))
	assert.Empty(t, f.redis.Keys())
}

func TestSignInEmailKeepsStoredRole(t *testing.T) {
	f := newFixture(t)
	f.creds.user = auth.User{ID: "u-2", Email: "admin@example.com", Role: "admin"}

	res, err := f.client.SignInEmail(context.Background(), "admin@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Session.Role)
}

func TestSignInEmailOTPCreatesUnknownUser(t *testing.T) {
	f := newFixture(t)

	res, err := f.client.SignInEmailOTP(context.Background(), " Jane@Example.com", "123456")
	require.NoError(t, err)

	require.Len(t, f.otp.verified, 1)
	assert.Equal(t, otpCall{email: "jane@example.com", typ: otp.TypeSignIn, code: "123456"}, f.otp.verified[0])
	require.Len(t, f.users.created, 1)
	assert.True(t, f.users.created[0].EmailVerified)
	assert.Equal(t, "u-new", res.Session.UserID)
	assert.Equal(t, auth.DefaultRole, res.Session.Role)
}

func TestSignInEmailOTPVerifiesExistingUser(t *testing.T) {
	f := newFixture(t)
	f.users.byEmail = map[string]auth.User{
		"jane@example.com": {ID: "u-1", Email: "jane@example.com", Role: auth.DefaultRole},
	}

	res, err := f.client.SignInEmailOTP(context.Background(), "jane@example.com", "123456")
	require.NoError(t, err)
	assert.Empty(t, f.users.created)
	assert.Equal(t, []string{"u-1"}, f.users.verified)
	assert.True(t, res.User.EmailVerified)
}

func TestSignInEmailOTPWrongCode(t *testing.T) {
	f := newFixture(t)
	f.otp.err = auth.ErrInvalidOTP

	_, err := f.client.SignInEmailOTP(context.Background(), "jane@example.com", "000000")
	assert.Equal(t, auth.CodeInvalidOTP, auth.Code(err))
	assert.Empty(t, f.users.created)
	assert.Empty(t, f.redis.Keys())
}

func TestVerifyEmailDoesNotStartSession(t *testing.T) {
	f := newFixture(t)
	f.users.byEmail = map[string]auth.User{
		"jane@example.com": {ID: "u-1", Email: "jane@example.com"},
	}

	user, err := f.client.VerifyEmail(context.Background(), "jane@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, otp.TypeEmailVerification, f.otp.verified[0].typ)
	assert.Empty(t, f.redis.Keys())
}

func TestSendVerificationOTP(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.SendVerificationOTP(context.Background(), "jane@example.com", otp.TypeSignIn))
	assert.Equal(t, []otpCall{{email: "jane@example.com", typ: otp.TypeSignIn}}, f.otp.sent)
	assert.Empty(t, f.otp.verified)
}

func TestSocialFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.client.SocialAuthURL("github", "st", "ch")
	require.NoError(t, err)
	assert.Contains(t, u, "state=st")

	_, err = f.client.SocialAuthURL("myspace", "st", "ch")
	assert.Equal(t, auth.CodeUnknownProvider, auth.Code(err))

	res, err := f.client.CompleteSocial(ctx, "github", "good", "v")
	require.NoError(t, err)
	assert.Equal(t, "u-gh", res.Session.UserID)
	assert.Equal(t, "42", f.resolver.identity.ProviderUserID)

	_, err = f.client.CompleteSocial(ctx, "github", "bad", "v")
	require.Error(t, err)

	assert.Equal(t, []string{"github"}, f.client.Providers())
}

func TestGetSessionExpiredAndSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.client.SignUpEmail(ctx, "Jane", "jane@example.com", "supersecret")
	require.NoError(t, err)
	id := res.Session.SessionID

	f.client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	sess, err := f.client.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, f.redis.Exists("session:"+id))

	f.client.now = time.Now
	res, err = f.client.SignUpEmail(ctx, "Jane", "jane@example.com", "supersecret")
	require.NoError(t, err)
	require.NoError(t, f.client.SignOut(ctx, res.Session.SessionID))
	require.NoError(t, f.client.SignOut(ctx, res.Session.SessionID))

	sess, err = f.client.GetSession(ctx, res.Session.SessionID)
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = f.client.GetSession(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.VerifyEmail(context.Background(), "ghost@example.com", "123456")
	assert.Equal(t, auth.CodeUserNotFound, auth.Code(err))
}

func TestGetSessionRefreshesAfterUpdateAge(t *testing.T) {
	f := newFixture(t)
	f.client.sessionTTL = 7 * 24 * time.Hour
	ctx := context.Background()

	res, err := f.client.SignUpEmail(ctx, "Jane", "jane@example.com", "supersecret")
	require.NoError(t, err)
	id := res.Session.SessionID

	// younger than a day: served as stored
	f.client.now = func() time.Time { return res.Session.CreatedAt.Add(time.Hour) }
	sess, err := f.client.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, res.Session.ExpiresAt.Equal(sess.ExpiresAt))

	// the role changed since sign-in
	f.users.byEmail = map[string]auth.User{
		"jane@example.com": {ID: "u-1", Name: "Jane Doe", Email: "jane@example.com", Role: "admin"},
	}
	later := res.Session.CreatedAt.Add(2 * 24 * time.Hour)
	f.client.now = func() time.Time { return later }

	sess, err = f.client.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, later.Add(7*24*time.Hour).Equal(sess.ExpiresAt))
	assert.Equal(t, "admin", sess.Role)
	assert.Equal(t, "Jane Doe", sess.Name)
	assert.True(t, res.Session.CreatedAt.Equal(sess.CreatedAt))

	stored, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "admin", stored.Role)
	assert.True(t, sess.ExpiresAt.Equal(stored.ExpiresAt))
	assert.Greater(t, f.redis.TTL("session:"+id), 8*24*time.Hour)
}

func TestGetSessionRefreshDropsDeletedUser(t *testing.T) {
	f := newFixture(t)
	f.client.sessionTTL = 7 * 24 * time.Hour
	ctx := context.Background()

	res, err := f.client.SignUpEmail(ctx, "Jane", "jane@example.com", "supersecret")
	require.NoError(t, err)
	id := res.Session.SessionID

	f.client.now = func() time.Time { return res.Session.CreatedAt.Add(3 * 24 * time.Hour) }
	sess, err := f.client.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, f.redis.Exists("session:"+id))
}
