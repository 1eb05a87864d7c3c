package middleware

import (
	"context"
	"net/http"

	"auth-portal/internal/logger"
	"auth-portal/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext returns the session attached by RequireAuth.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*session.Session)
	return sess, ok && sess != nil
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return sess.UserID, true
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionSource resolves a live session; nil means none. Expired
// sessions are already filtered out by the source.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
}

type AuthMiddleware struct {
	Sessions SessionSource

	// Unauthorized writes the rejection. Defaults to a plain 401.
	Unauthorized http.HandlerFunc
}

func NewAuthMiddleware(sessions SessionSource) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions}
}

// RedirectTo rejects unauthenticated requests with a 303 to target.
func RedirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func (a *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request) {
	if a.Unauthorized != nil {
		a.Unauthorized(w, r)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Read session cookie
		sessionID, ok := session.FromRequest(r)
		if !ok {
			a.reject(w, r)
			return
		}

		// 2. Load session
		sess, err := a.Sessions.GetSession(r.Context(), sessionID)
		if err != nil {
			logger.Error("session lookup failed", logger.Err(err))
			a.reject(w, r)
			return
		}
		if sess == nil {
			a.reject(w, r)
			return
		}

		// 3. Attach session (user id + role) to context
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
