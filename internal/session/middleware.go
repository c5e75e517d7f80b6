package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// CookieName is the cookie carrying the session id.
const CookieName = "pharmaflow_session"

type ctxKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok && sess != nil
}

// Middleware loads the session named by the cookie and marks it used,
// creating one (and setting the cookie) when it is missing or unknown.
func Middleware(store *Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *Session
			if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
				sess, err = store.Get(ctx, c.Value)
				if err != nil && !errors.Is(err, ErrNotFound) {
					logger.Error("loading session", zap.Error(err))
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				if sess != nil {
					if err := store.Touch(ctx, sess.ID); err != nil {
						logger.Warn("touching session", zap.Error(err))
					}
				}
			}

			if sess == nil {
				var err error
				sess, err = store.Create(ctx)
				if err != nil {
					logger.Error("creating session", zap.Error(err))
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}
