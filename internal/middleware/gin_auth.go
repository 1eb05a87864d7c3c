package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the *session.Session.
const SessionKey = "session"

// GinRequireAuth adapts the net/http AuthMiddleware to Gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if sess, ok := SessionFromContext(r.Context()); ok {
				c.Set(SessionKey, sess)
			}
			c.Next()
		})

		handler := auth.RequireAuth(next)
		handler.ServeHTTP(c.Writer, c.Request)

		// If auth middleware already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}
