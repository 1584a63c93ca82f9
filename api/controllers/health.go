package controllers

import (
	"context"
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

const envHeader = "X-AgriGen-Env"

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the session store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session store unavailable").
					WithDetails(map[string]any{"store": cfg.Store.Driver}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "store": cfg.Store.Driver})
	}
}
