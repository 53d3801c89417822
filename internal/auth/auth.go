// Package auth resolves the authenticated user from a signed cookie
// session. Signing in is handled by another service sharing the secret.
package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/unclebandit/outbound-campaigns/internal/logger"
)

const userIDKey = "user_id"

type ctxKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// ContextIdentity answers "who is the current user" from the request
// context populated by SessionAuth.Middleware.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (string, bool) {
	return UserFromContext(ctx)
}

type SessionAuth struct {
	store  sessions.Store
	name   string
	logger *zap.Logger
}

func NewSessionAuth(store sessions.Store, name string, l *zap.Logger) *SessionAuth {
	return &SessionAuth{store: store, name: name, logger: logger.Component(l, "auth")}
}

// NewCookieStore is the store used in production: HTTP-only, SameSite=Lax.
func NewCookieStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Middleware attaches the session user, if any, to the request context.
// Requests without a valid session pass through anonymously.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.store.Get(r, a.name)
		if err != nil {
			a.logger.Debug("ignoring unreadable session", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if id, ok := session.Values[userIDKey].(string); ok && id != "" {
			r = r.WithContext(WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// SignIn stores userID in the session cookie.
func (a *SessionAuth) SignIn(w http.ResponseWriter, r *http.Request, userID string) error {
	session, err := a.store.Get(r, a.name)
	if err != nil && session == nil {
		return err
	}
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}
