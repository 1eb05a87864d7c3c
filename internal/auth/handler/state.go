package handler

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"auth-portal/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
)

const (
	stateCookieName    = "__oauth_state"
	callbackCookieName = "__oauth_callback"
	flowTTL            = 5 * time.Minute
)

func generateState(c *gin.Context, secure bool) (string, error) {
	state, err := utils.RandomString(32)
	if err != nil {
		return "", oops.Code("STATE_FAILED").Wrap(err)
	}

	setFlowCookie(c, stateCookieName, state, secure)
	return state, nil
}

func validateState(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	cookie := getFlowCookie(c, stateCookieName)
	if cookie == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(cookie), []byte(stateQuery)) == 1
}

func setFlowCookie(c *gin.Context, name, value string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flowTTL.Seconds()),
	})
}

func getFlowCookie(c *gin.Context, name string) string {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return v
}

func clearFlowCookies(c *gin.Context, secure bool) {
	for _, name := range []string{stateCookieName, pkceCookieName, callbackCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// safeCallbackURL only lets through same-site absolute paths.
func safeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return raw
}
