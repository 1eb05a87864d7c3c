// Package web serves the server-rendered sign-in, sign-up and home pages.
// Every form post maps to exactly one auth client call.
package web

import (
	"context"
	"net/http"
	"net/url"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/client"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/logger"
	"auth-portal/internal/middleware"
	"auth-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// Auth is the part of the auth client the pages call.
type Auth interface {
	SignUpEmail(ctx context.Context, name, email, password string) (client.Result, error)
	SignInEmail(ctx context.Context, email, password string) (client.Result, error)
	SendVerificationOTP(ctx context.Context, email string, typ otp.Type) error
	SignInEmailOTP(ctx context.Context, email, code string) (client.Result, error)
	SignOut(ctx context.Context, sessionID string) error
}

// HomePath is where every successful sign-in lands.
const HomePath = "/"

type providerButton struct {
	Key   string
	Label string
	Href  string
}

var knownProviders = []struct{ key, label string }{
	{"google", "Google"},
	{"github", "GitHub"},
}

type Pages struct {
	auth      Auth
	cookies   session.CookieOptions
	providers []providerButton
}

// NewPages builds the page handlers. Social buttons are shown for the
// enabled providers only, always in the same order.
func NewPages(a Auth, cookies session.CookieOptions, enabledProviders []string) *Pages {
	enabled := make(map[string]bool, len(enabledProviders))
	for _, p := range enabledProviders {
		enabled[p] = true
	}

	var buttons []providerButton
	for _, p := range knownProviders {
		if !enabled[p.key] {
			continue
		}
		q := url.Values{"provider": {p.key}, "callbackURL": {HomePath}}
		buttons = append(buttons, providerButton{
			Key:   p.key,
			Label: p.label,
			Href:  "/api/auth/sign-in/social?" + q.Encode(),
		})
	}

	return &Pages{auth: a, cookies: cookies, providers: buttons}
}

// RegisterRoutes mounts the pages. requireAuth guards the home page.
func (p *Pages) RegisterRoutes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	r.GET("/sign-in", p.signInPage)
	r.POST("/sign-in", p.signIn)
	r.GET("/sign-up", p.signUpPage)
	r.POST("/sign-up", p.signUp)
	r.POST("/sign-out", p.signOut)
	r.GET(HomePath, requireAuth, p.home)
}

type signInView struct {
	Mode     Mode
	OTPSent  bool
	Email    string
	Password string
	OTP      string
	Error    string

	Title       string
	Description string
	SubmitLabel string
	ToggleLabel string
	ToggleHref  string
	Providers   []providerButton
}

func (p *Pages) newSignInView(mode Mode, otpSent bool) signInView {
	v := signInView{Mode: mode, OTPSent: otpSent && mode == ModeOTP, Providers: p.providers}

	switch {
	case mode == ModePassword:
		v.Title = "Welcome Back"
		v.Description = "Enter your credentials to access your account"
		v.SubmitLabel = "Sign In"
		v.ToggleLabel = "Login through code"
		v.ToggleHref = "/sign-in?mode=otp"
	case v.OTPSent:
		v.Title = "Login with Code"
		v.Description = "We sent a code to your email"
		v.SubmitLabel = "Verify Code"
	default:
		v.Title = "Login with Code"
		v.Description = "We will send a one-time code to your email"
		v.SubmitLabel = "Send Code"
	}
	if mode == ModeOTP {
		v.ToggleLabel = "Sign in with password"
		v.ToggleHref = "/sign-in"
	}
	return v
}

func (p *Pages) signInPage(c *gin.Context) {
	v := p.newSignInView(ParseMode(c.Query("mode")), false)
	if code := c.Query("error"); code != "" {
		v.Error = auth.MessageForCode(code)
	}
	render(c, http.StatusOK, "sign_in.html", v)
}

func (p *Pages) signIn(c *gin.Context) {
	mode := ParseMode(c.PostForm("mode"))
	otpSent := c.PostForm("otp_sent") == "true"

	v := p.newSignInView(mode, otpSent)
	v.Email = c.PostForm("email")
	v.Password = c.PostForm("password")
	v.OTP = c.PostForm("otp")

	ctx := c.Request.Context()

	switch {
	case mode == ModePassword:
		res, err := p.auth.SignInEmail(ctx, v.Email, v.Password)
		if err != nil {
			p.signInFailed(c, v, err)
			return
		}
		p.signedIn(c, res)

	case !v.OTPSent:
		if err := p.auth.SendVerificationOTP(ctx, v.Email, otp.TypeSignIn); err != nil {
			p.signInFailed(c, v, err)
			return
		}
		sent := p.newSignInView(ModeOTP, true)
		sent.Email = v.Email
		render(c, http.StatusOK, "sign_in.html", sent)

	default:
		res, err := p.auth.SignInEmailOTP(ctx, v.Email, v.OTP)
		if err != nil {
			p.signInFailed(c, v, err)
			return
		}
		p.signedIn(c, res)
	}
}

func (p *Pages) signInFailed(c *gin.Context, v signInView, err error) {
	logFailure("sign-in", v.Mode.String(), err)
	v.Error = auth.PublicMessage(err)
	render(c, auth.HTTPStatus(err), "sign_in.html", v)
}

type signUpView struct {
	Name      string
	Email     string
	Password  string
	Error     string
	Providers []providerButton
}

func (p *Pages) signUpPage(c *gin.Context) {
	render(c, http.StatusOK, "sign_up.html", signUpView{Providers: p.providers})
}

// signUp reads only name, email and password; any other field,
// "role" included, is ignored.
func (p *Pages) signUp(c *gin.Context) {
	v := signUpView{
		Name:      c.PostForm("name"),
		Email:     c.PostForm("email"),
		Password:  c.PostForm("password"),
		Providers: p.providers,
	}

	res, err := p.auth.SignUpEmail(c.Request.Context(), v.Name, v.Email, v.Password)
	if err != nil {
		logFailure("sign-up", "password", err)
		v.Error = auth.PublicMessage(err)
		render(c, auth.HTTPStatus(err), "sign_up.html", v)
		return
	}
	p.signedIn(c, res)
}

type homeView struct {
	Name  string
	Email string
	Role  string
}

func (p *Pages) home(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		c.Redirect(http.StatusSeeOther, "/sign-in")
		return
	}
	render(c, http.StatusOK, "home.html", homeView{
		Name:  sess.Name,
		Email: sess.Email,
		Role:  sess.Role,
	})
}

func (p *Pages) signOut(c *gin.Context) {
	if id, ok := session.FromRequest(c.Request); ok {
		if err := p.auth.SignOut(c.Request.Context(), id); err != nil {
			logger.Warn("sign-out failed", logger.Err(err))
		}
	}
	session.ClearCookie(c.Writer, p.cookies)
	c.Redirect(http.StatusSeeOther, "/sign-in")
}

func (p *Pages) signedIn(c *gin.Context, res client.Result) {
	session.SetCookie(c.Writer, res.Session.SessionID, res.Session.ExpiresAt, p.cookies)
	c.Redirect(http.StatusSeeOther, HomePath)
}

func logFailure(action, mode string, err error) {
	fields := logger.Err(err)
	fields["action"] = action
	fields["mode"] = mode
	if auth.HTTPStatus(err) >= http.StatusInternalServerError {
		logger.Error("page action failed", fields)
		return
	}
	logger.Info("page action rejected", fields)
}
