package middleware

import (
	"context"

	"github.com/agrigenai/agrigen-backend/internal/session"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the session opened by the Session middleware.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
