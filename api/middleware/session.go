package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/internal/session"
	pkgAuth "github.com/agrigenai/agrigen-backend/pkg/auth"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

// LoginPath is where requests without a signed-in identity are sent.
const LoginPath = "/login"

type sessionOpener interface {
	Open(ctx context.Context, id string) (*session.Session, error)
}

// Session validates the bearer session token and seeds the request context with the live session.
func Session(cfg config.SessionConfig, sessions sessionOpener, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session token"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token"))
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithSessionID(ctx, claims.SessionID.String())
			}

			sess, err := sessions.Open(ctx, claims.SessionID.String())
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

// RequireIdentity redirects to the login page unless the session has a signed-in identity.
func RequireIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing"))
				return
			}
			if !sess.SignedIn() {
				if logg != nil {
					logg.Debug(r.Context(), "request.identity_required")
				}
				responses.WriteRedirect(w, LoginPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
