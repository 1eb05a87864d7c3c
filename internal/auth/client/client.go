// Package client is the single entry point the HTTP layers use to sign
// users up, sign them in and manage their sessions.
package client

import (
	"context"
	"errors"
	"time"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/auth/resolver"
	"auth-portal/internal/auth/users"
	"auth-portal/internal/logger"
	"auth-portal/internal/session"

	"github.com/samber/oops"
)

type Credentials interface {
	Register(ctx context.Context, name, email, password string) (auth.User, error)
	Authenticate(ctx context.Context, email, password string) (auth.User, error)
}

type OTP interface {
	Send(ctx context.Context, email string, typ otp.Type) error
	Verify(ctx context.Context, email string, typ otp.Type, code string) error
}

type Users interface {
	GetByID(ctx context.Context, id string) (auth.User, error)
	GetByEmail(ctx context.Context, email string) (auth.User, error)
	Create(ctx context.Context, nu users.NewUser) (auth.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
}

// Result is what every successful sign-in or sign-up yields.
type Result struct {
	Session session.Session
	User    auth.User
}

type Deps struct {
	Credentials Credentials
	OTP         OTP
	Users       Users
	Resolver    resolver.Resolver
	Providers   *provider.Registry
	Sessions    session.Store
	SessionTTL  time.Duration

	// SessionUpdateAge is how old a session gets before a read extends
	// it by another SessionTTL.
	SessionUpdateAge time.Duration
}

type Client struct {
	credentials Credentials
	otp         OTP
	users       Users
	resolver    resolver.Resolver
	providers   *provider.Registry
	sessions    session.Store
	sessionTTL  time.Duration
	updateAge   time.Duration
	now         func() time.Time
}

func New(d Deps) *Client {
	if d.SessionTTL <= 0 {
		d.SessionTTL = 7 * 24 * time.Hour
	}
	if d.SessionUpdateAge <= 0 {
		d.SessionUpdateAge = 24 * time.Hour
	}
	if d.Providers == nil {
		d.Providers = provider.NewRegistry()
	}
	return &Client{
		credentials: d.Credentials,
		otp:         d.OTP,
		users:       d.Users,
		resolver:    d.Resolver,
		providers:   d.Providers,
		sessions:    d.Sessions,
		sessionTTL:  d.SessionTTL,
		updateAge:   d.SessionUpdateAge,
		now:         time.Now,
	}
}

// SignUpEmail registers an email/password account and signs it in.
func (c *Client) SignUpEmail(ctx context.Context, name, email, password string) (Result, error) {
	user, err := c.credentials.Register(ctx, name, email, password)
	if err != nil {
		return Result{}, err
	}
	logger.Info("user registered", map[string]any{"user_id": user.ID, "method": "email"})
	return c.startSession(ctx, user)
}

func (c *Client) SignInEmail(ctx context.Context, email, password string) (Result, error) {
	user, err := c.credentials.Authenticate(ctx, email, password)
	if err != nil {
		return Result{}, err
	}
	return c.startSession(ctx, user)
}

// SendVerificationOTP issues a code of the given type to email.
func (c *Client) SendVerificationOTP(ctx context.Context, email string, typ otp.Type) error {
	return c.otp.Send(ctx, email, typ)
}

// SignInEmailOTP consumes a sign-in code. An unknown email gets a fresh
// account; either way the address counts as verified afterwards.
func (c *Client) SignInEmailOTP(ctx context.Context, email, code string) (Result, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return Result{}, err
	}
	if err := c.otp.Verify(ctx, email, otp.TypeSignIn, code); err != nil {
		return Result{}, err
	}

	user, err := c.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.EmailVerified {
			if err := c.users.MarkEmailVerified(ctx, user.ID); err != nil {
				return Result{}, err
			}
			user.EmailVerified = true
		}
	case auth.Code(err) == auth.CodeNotFound:
		user, err = c.users.Create(ctx, users.NewUser{Email: email, EmailVerified: true})
		if err != nil {
			// a concurrent sign-in may have created it first
			existing, lookupErr := c.users.GetByEmail(ctx, email)
			if lookupErr != nil {
				return Result{}, err
			}
			user = existing
		} else {
			logger.Info("user registered", map[string]any{"user_id": user.ID, "method": "email-otp"})
		}
	default:
		return Result{}, err
	}

	return c.startSession(ctx, user)
}

// VerifyEmail consumes an email-verification code without signing in.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) (auth.User, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return auth.User{}, err
	}
	if err := c.otp.Verify(ctx, email, otp.TypeEmailVerification, code); err != nil {
		return auth.User{}, err
	}

	user, err := c.users.GetByEmail(ctx, email)
	if auth.Code(err) == auth.CodeNotFound {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	if err := c.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return auth.User{}, err
	}
	user.EmailVerified = true
	return user, nil
}

// SocialAuthURL returns where to send the browser for providerName.
func (c *Client) SocialAuthURL(providerName, state, codeChallenge string) (string, error) {
	p, err := c.providers.Get(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state, codeChallenge), nil
}

// CompleteSocial finishes an OAuth round trip and signs the user in.
func (c *Client) CompleteSocial(ctx context.Context, providerName, code, codeVerifier string) (Result, error) {
	p, err := c.providers.Get(providerName)
	if err != nil {
		return Result{}, err
	}

	identity, err := p.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return Result{}, err
	}

	user, err := c.resolver.Resolve(ctx, identity)
	if err != nil {
		return Result{}, err
	}
	return c.startSession(ctx, user)
}

// Providers lists the configured social providers.
func (c *Client) Providers() []string {
	return c.providers.Names()
}

// GetSession returns the live session for id, or nil when there is none.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	sess, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, oops.Code("SESSION_LOAD_FAILED").Wrapf(err, "load session")
	}
	if sess == nil {
		return nil, nil
	}
	now := c.now()
	if sess.Expired(now) {
		_ = c.sessions.Delete(ctx, sessionID)
		return nil, nil
	}

	// ExpiresAt was last set to refresh time + sessionTTL.
	refreshedAt := sess.ExpiresAt.Add(-c.sessionTTL)
	if now.Sub(refreshedAt) < c.updateAge {
		return sess, nil
	}
	return c.refreshSession(ctx, sess, now)
}

// refreshSession extends sess and re-reads the profile snapshot so role
// or name changes reach the session. A failed refresh keeps serving
// the current session.
func (c *Client) refreshSession(ctx context.Context, sess *session.Session, now time.Time) (*session.Session, error) {
	user, err := c.users.GetByID(ctx, sess.UserID)
	if auth.Code(err) == auth.CodeNotFound {
		_ = c.sessions.Delete(ctx, sess.SessionID)
		logger.Info("session dropped for missing user", map[string]any{"user_id": sess.UserID})
		return nil, nil
	}
	if err != nil {
		logger.Warn("session refresh skipped", logger.Err(err))
		return sess, nil
	}

	next := *sess
	next.Email = user.Email
	next.Name = user.Name
	next.Role = user.Role
	if next.Role == "" {
		next.Role = auth.DefaultRole
	}
	next.ExpiresAt = now.Add(c.sessionTTL)

	err = c.sessions.Update(ctx, next)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Warn("session refresh failed", logger.Err(err))
		return sess, nil
	}
	return &next, nil
}

// SignOut drops the session. Unknown ids are not an error.
func (c *Client) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrapf(err, "delete session")
	}
	logger.Info("session ended", nil)
	return nil
}

func (c *Client) startSession(ctx context.Context, user auth.User) (Result, error) {
	id, err := session.GenerateID()
	if err != nil {
		return Result{}, oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}

	now := c.now()
	sess := session.Session{
		SessionID: id,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(c.sessionTTL),
	}
	if sess.Role == "" {
		sess.Role = auth.DefaultRole
	}

	if err := c.sessions.Create(ctx, sess); err != nil {
		return Result{}, oops.Code("SESSION_CREATE_FAILED").With("user_id", user.ID).Wrapf(err, "persist session")
	}

	logger.Info("session started", map[string]any{"user_id": user.ID, "role": sess.Role})
	return Result{Session: sess, User: user}, nil
}
