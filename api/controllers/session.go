package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/agrigenai/agrigen-backend/api/middleware"
	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/internal/session"
	"github.com/agrigenai/agrigen-backend/pkg/auth"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/google/uuid"
)

const sessionTokenHeader = "X-AgriGen-Token"

type sessionCreator interface {
	New(ctx context.Context) (*session.Session, error)
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCreate starts an anonymous session and returns the bearer token that addresses it.
func SessionCreate(sessions sessionCreator, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		sess, err := sessions.New(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now().UTC()
		token, err := auth.MintSessionToken(cfg, now, uuid.MustParse(sess.ID()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithSessionID(r.Context(), sess.ID()), "session.created")
		}
		w.Header().Set(sessionTokenHeader, token)
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			SessionID: sess.ID(),
			Token:     token,
			ExpiresAt: now.Add(cfg.TTL()),
		})
	}
}

func sessionFromRequest(r *http.Request) (*session.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing")
	}
	return sess, nil
}
