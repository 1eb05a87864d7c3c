package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/client"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/middleware"
	"auth-portal/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type call struct {
	method string
	args   []string
}

type fakeAuth struct {
	calls    []call
	err      error
	sessions map[string]*session.Session
}

func (f *fakeAuth) record(method string, args ...string) {
	f.calls = append(f.calls, call{method: method, args: args})
}

func (f *fakeAuth) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeAuth) result() (client.Result, error) {
	if f.err != nil {
		return client.Result{}, f.err
	}
	return client.Result{
		Session: session.Session{SessionID: "sess-1", UserID: "u-1", Role: auth.DefaultRole, ExpiresAt: time.Now().Add(time.Hour)},
		User:    auth.User{ID: "u-1", Role: auth.DefaultRole},
	}, nil
}

func (f *fakeAuth) SignUpEmail(_ context.Context, name, email, password string) (client.Result, error) {
	f.record("SignUpEmail", name, email, password)
	return f.result()
}

func (f *fakeAuth) SignInEmail(_ context.Context, email, password string) (client.Result, error) {
	f.record("SignInEmail", email, password)
	return f.result()
}

func (f *fakeAuth) SendVerificationOTP(_ context.Context, email string, typ otp.Type) error {
	f.record("SendVerificationOTP", email, string(typ))
	return f.err
}

func (f *fakeAuth) SignInEmailOTP(_ context.Context, email, code string) (client.Result, error) {
	f.record("SignInEmailOTP", email, code)
	return f.result()
}

func (f *fakeAuth) SignOut(_ context.Context, id string) error {
	f.record("SignOut", id)
	return nil
}

func (f *fakeAuth) GetSession(_ context.Context, id string) (*session.Session, error) {
	return f.sessions[id], nil
}

func newRouter(fa *fakeAuth) *gin.Engine {
	r := gin.New()
	mw := middleware.NewAuthMiddleware(fa)
	mw.Unauthorized = middleware.RedirectTo("/sign-in")
	NewPages(fa, session.CookieOptions{}, []string{"github", "google"}).
		RegisterRoutes(r, middleware.GinRequireAuth(mw))
	return r
}

func get(r http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func post(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var submitButton = regexp.MustCompile(`<button type="submit" id="submit"[^>]*>`)

func assertButtonEnabled(t *testing.T, body string) {
	t.Helper()
	tag := submitButton.FindString(body)
	require.NotEmpty(t, tag, "primary button missing")
	assert.NotContains(t, tag, "disabled")
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeOTP, ParseMode("otp"))
	assert.Equal(t, ModePassword, ParseMode(""))
	assert.Equal(t, ModePassword, ParseMode("OTP "))
	assert.Equal(t, "otp", ModeOTP.String())
}

func TestSignInPageModes(t *testing.T) {
	r := newRouter(&fakeAuth{})

	t.Run("password by default", func(t *testing.T) {
		body := get(r, "/sign-in").Body.String()
		assert.Contains(t, body, "Welcome Back")
		assert.Contains(t, body, "Enter your credentials to access your account")
		assert.Contains(t, body, `name="password"`)
		assert.Contains(t, body, "Login through code")
		assert.NotContains(t, body, "Login with Code")
	})

	t.Run("code flow from query", func(t *testing.T) {
		body := get(r, "/sign-in?mode=otp").Body.String()
		assert.Contains(t, body, "Login with Code")
		assert.Contains(t, body, "We will send a one-time code to your email")
		assert.Contains(t, body, "Send Code")
		assert.Contains(t, body, "Sign in with password")
		assert.NotContains(t, body, "Welcome Back")
		assert.NotContains(t, body, `name="password"`)
		assert.NotContains(t, body, `name="otp"`)
	})

	t.Run("social buttons return home", func(t *testing.T) {
		body := get(r, "/sign-in").Body.String()
		google := strings.Index(body, "Continue with Google")
		github := strings.Index(body, "Continue with GitHub")
		require.True(t, google > 0 && github > 0)
		assert.Less(t, google, github)
		assert.Contains(t, body, "provider=google")
		assert.Contains(t, body, "callbackURL=%2F")
	})

	t.Run("oauth failure code", func(t *testing.T) {
		body := get(r, "/sign-in?error=ACCOUNT_NOT_LINKED").Body.String()
		assert.Contains(t, body, `role="alert"`)
		assert.Contains(t, body, "Account not linked")
	})
}

func TestSignInPasswordSuccessGoesHome(t *testing.T) {
	fa := &fakeAuth{}
	rec := post(newRouter(fa), "/sign-in", url.Values{
		"mode": {"password"}, "email": {"jane@example.com"}, "password": {"supersecret"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), session.CookieName+"=sess-1")
	assert.Equal(t, []call{{"SignInEmail", []string{"jane@example.com", "supersecret"}}}, fa.calls)
}

func TestSignInFailureKeepsValues(t *testing.T) {
	fa := &fakeAuth{err: auth.ErrInvalidCredentials}
	rec := post(newRouter(fa), "/sign-in", url.Values{
		"mode": {"password"}, "email": {"jane@example.com"}, "password": {"wrong-password"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `value="jane@example.com"`)
	assert.Contains(t, body, `value="wrong-password"`)
	assertButtonEnabled(t, body)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestSignInCodeFirstSubmitSendsOnce(t *testing.T) {
	fa := &fakeAuth{}
	rec := post(newRouter(fa), "/sign-in", url.Values{
		"mode": {"otp"}, "email": {"jane@example.com"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fa.count("SendVerificationOTP"))
	assert.Equal(t, 0, fa.count("SignInEmailOTP"))
	assert.Equal(t, []string{"jane@example.com", "sign-in"}, fa.calls[0].args)

	body := rec.Body.String()
	assert.Contains(t, body, "We sent a code to your email")
	assert.Contains(t, body, "Verify Code")
	assert.Contains(t, body, `name="otp_sent" value="true"`)
	assert.Contains(t, body, `name="otp"`)
	assert.Contains(t, body, "readonly")
	assertButtonEnabled(t, body)
}

func TestSignInCodeSecondSubmitVerifiesOnce(t *testing.T) {
	fa := &fakeAuth{}
	rec := post(newRouter(fa), "/sign-in", url.Values{
		"mode": {"otp"}, "otp_sent": {"true"}, "email": {"jane@example.com"}, "otp": {"123456"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 1, fa.count("SignInEmailOTP"))
	assert.Equal(t, 0, fa.count("SendVerificationOTP"))
	assert.Equal(t, []string{"jane@example.com", "123456"}, fa.calls[0].args)
}

func TestSignInCodeFailureStaysOnCodeStep(t *testing.T) {
	fa := &fakeAuth{err: auth.ErrInvalidOTP}
	rec := post(newRouter(fa), "/sign-in", url.Values{
		"mode": {"otp"}, "otp_sent": {"true"}, "email": {"jane@example.com"}, "otp": {"999999"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid OTP")
	assert.Contains(t, body, `value="999999"`)
	assert.Contains(t, body, `name="otp_sent" value="true"`)
	assertButtonEnabled(t, body)
	assert.Equal(t, 0, fa.count("SendVerificationOTP"))
}

func TestSignInCodeSendFailure(t *testing.T) {
	fa := &fakeAuth{err: assert.AnError}
	rec := post(newRouter(fa), "/sign-in", url.Values{"mode": {"otp"}, "email": {"jane@example.com"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Something went wrong")
	assert.Contains(t, body, "Send Code")
	assert.NotContains(t, body, `name="otp_sent"`)
	assertButtonEnabled(t, body)
}

func TestSignUp(t *testing.T) {
	t.Run("success ignores role", func(t *testing.T) {
		fa := &fakeAuth{}
		rec := post(newRouter(fa), "/sign-up", url.Values{
			"name": {"Jane"}, "email": {"jane@example.com"}, "password": {"supersecret"}, "role": {"admin"},
		})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.Equal(t, []call{{"SignUpEmail", []string{"Jane", "jane@example.com", "supersecret"}}}, fa.calls)
	})

	t.Run("failure surfaces message", func(t *testing.T) {
		fa := &fakeAuth{err: auth.ErrUserAlreadyExists}
		rec := post(newRouter(fa), "/sign-up", url.Values{
			"name": {"Jane"}, "email": {"jane@example.com"}, "password": {"supersecret"},
		})

		body := rec.Body.String()
		assert.Contains(t, body, "User already exists")
		assert.Contains(t, body, `value="Jane"`)
		assertButtonEnabled(t, body)
	})

	t.Run("page links", func(t *testing.T) {
		body := get(newRouter(&fakeAuth{}), "/sign-up").Body.String()
		assert.Contains(t, body, "Create your account to get started.")
		assert.Contains(t, body, `href="/sign-in?mode=otp"`)
		assert.Contains(t, body, "Continue with GitHub")
	})
}

func TestHome(t *testing.T) {
	fa := &fakeAuth{sessions: map[string]*session.Session{
		"sess-1": {SessionID: "sess-1", UserID: "u-1", Name: "Jane", Email: "jane@example.com", Role: "user"},
	}}
	r := newRouter(fa)

	rec := get(r, "/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", rec.Header().Get("Location"))

	rec = get(r, "/", &http.Cookie{Name: session.CookieName, Value: "sess-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome, Jane")
	assert.Contains(t, body, `<dd id="role">user</dd>`)
	assert.Contains(t, body, `action="/sign-out"`)
}

func TestSignOut(t *testing.T) {
	fa := &fakeAuth{}
	req := httptest.NewRequest(http.MethodPost, "/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	newRouter(fa).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
	assert.Equal(t, []call{{"SignOut", []string{"sess-1"}}}, fa.calls)
}

func TestProvidersFollowConfig(t *testing.T) {
	p := NewPages(&fakeAuth{}, session.CookieOptions{}, []string{"github"})
	require.Len(t, p.providers, 1)
	assert.Equal(t, "github", p.providers[0].Key)
}
