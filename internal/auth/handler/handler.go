package handler

import (
	"context"
	"net/http"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/client"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/logger"
	"auth-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// Auth is the part of the auth client the JSON API drives.
type Auth interface {
	SignUpEmail(ctx context.Context, name, email, password string) (client.Result, error)
	SignInEmail(ctx context.Context, email, password string) (client.Result, error)
	SendVerificationOTP(ctx context.Context, email string, typ otp.Type) error
	SignInEmailOTP(ctx context.Context, email, code string) (client.Result, error)
	VerifyEmail(ctx context.Context, email, code string) (auth.User, error)
	SocialAuthURL(providerName, state, codeChallenge string) (string, error)
	CompleteSocial(ctx context.Context, providerName, code, codeVerifier string) (client.Result, error)
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

type Handler struct {
	auth    Auth
	cookies session.CookieOptions
}

func NewHandler(a Auth, cookies session.CookieOptions) *Handler {
	return &Handler{
		auth:    a,
		cookies: cookies,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/auth")

	api.POST("/sign-up/email", h.SignUpEmail)
	api.POST("/sign-in/email", h.SignInEmail)
	api.POST("/email-otp/send-verification-otp", h.SendVerificationOTP)
	api.POST("/sign-in/email-otp", h.SignInEmailOTP)
	api.POST("/email-otp/verify-email", h.VerifyEmail)
	api.GET("/sign-in/social", h.login)
	api.GET("/callback/:provider", h.callback)
	api.GET("/get-session", h.GetSession)
	api.POST("/sign-out", h.Logout)

	if e, ok := r.(*gin.Engine); ok {
		for _, route := range e.Routes() {
			logger.Debug("route registered", map[string]any{"method": route.Method, "path": route.Path})
		}
	}
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Query("provider")

	state, err := generateState(c, h.cookies.Secure)
	if err != nil {
		writeError(c, err)
		return
	}
	_, codeChallenge, err := generatePKCE(c, h.cookies.Secure)
	if err != nil {
		writeError(c, err)
		return
	}

	authURL, err := h.auth.SocialAuthURL(providerName, state, codeChallenge)
	if err != nil {
		clearFlowCookies(c, h.cookies.Secure)
		writeError(c, err)
		return
	}

	setFlowCookie(c, callbackCookieName, safeCallbackURL(c.Query("callbackURL")), h.cookies.Secure)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	if !validateState(c) {
		logger.Warn("oauth state mismatch", map[string]any{"provider": providerName})
		h.failCallback(c, "STATE_MISMATCH")
		return
	}

	// provider-side failure, usually a denied consent screen
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		h.failCallback(c, "OAUTH_DENIED")
		return
	}

	code := c.Query("code")
	codeVerifier := getPKCEVerifier(c)
	if code == "" || codeVerifier == "" {
		logger.Warn("oauth callback missing code or verifier", map[string]any{"provider": providerName})
		h.failCallback(c, "OAUTH_FAILED")
		return
	}

	res, err := h.auth.CompleteSocial(c.Request.Context(), providerName, code, codeVerifier)
	if err != nil {
		fields := logger.Err(err)
		fields["provider"] = providerName
		logger.Warn("oauth sign-in failed", fields)

		failure := "OAUTH_FAILED"
		if auth.HTTPStatus(err) < http.StatusInternalServerError {
			failure = auth.Code(err)
		}
		h.failCallback(c, failure)
		return
	}

	target := safeCallbackURL(getFlowCookie(c, callbackCookieName))
	clearFlowCookies(c, h.cookies.Secure)
	h.setSession(c, res)

	logger.Info("oauth sign-in", map[string]any{
		"provider": providerName,
		"user_id":  res.User.ID,
		"ip":       c.ClientIP(),
	})

	c.Redirect(http.StatusFound, target)
}

func (h *Handler) failCallback(c *gin.Context, code string) {
	clearFlowCookies(c, h.cookies.Secure)
	c.Redirect(http.StatusFound, "/sign-in?error="+code)
}

func (h *Handler) GetSession(c *gin.Context) {
	id, _ := session.FromRequest(c.Request)

	sess, err := h.auth.GetSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	// a read may have extended the session
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, h.cookies)

	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"id":        sess.SessionID,
			"userId":    sess.UserID,
			"createdAt": sess.CreatedAt,
			"expiresAt": sess.ExpiresAt,
		},
		"user": gin.H{
			"id":    sess.UserID,
			"email": sess.Email,
			"name":  sess.Name,
			"role":  sess.Role,
		},
	})
}

func (h *Handler) Logout(c *gin.Context) {
	// 1. Drop the stored session (best-effort)
	if id, ok := session.FromRequest(c.Request); ok {
		if err := h.auth.SignOut(c.Request.Context(), id); err != nil {
			logger.Warn("sign-out failed", logger.Err(err))
		}
	}

	// 2. Always clear the cookie
	session.ClearCookie(c.Writer, h.cookies)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) setSession(c *gin.Context, res client.Result) {
	session.SetCookie(c.Writer, res.Session.SessionID, res.Session.ExpiresAt, h.cookies)
}

func (h *Handler) writeSignedIn(c *gin.Context, status int, res client.Result) {
	h.setSession(c, res)
	c.JSON(status, gin.H{
		"redirect": false,
		"token":    res.Session.SessionID,
		"user":     res.User,
	})
}

func writeError(c *gin.Context, err error) {
	status := auth.HTTPStatus(err)
	code := auth.Code(err)
	if status >= http.StatusInternalServerError {
		logger.Error("auth request failed", logger.Err(err))
		code = "INTERNAL_SERVER_ERROR"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"message": auth.PublicMessage(err),
		"code":    code,
	})
}

func writeBadRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": "Invalid request body",
		"code":    "VALIDATION_ERROR",
	})
}
