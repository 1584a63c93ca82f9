package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/agrigenai/agrigen-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteRedirect answers 303 See Other so clients navigate to location instead of rendering the
// requested view.
func WriteRedirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusSeeOther, types.SuccessEnvelope{Data: types.Redirect{Location: location}})
}

// WriteError renders err as an error envelope. Untyped errors become INTERNAL_ERROR and never leak
// their text; 5xx responses are logged as errors, everything else as a rejected request.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{Code: string(typed.Code()), Message: publicMessage(typed, meta)}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(logg.WithField(ctx, "error_code", typed.Code()), "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

// publicMessage keeps internal failures opaque; every other code is safe to echo.
func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	if typed.Code() == pkgerrors.CodeInternal || typed.Message() == "" {
		return meta.PublicMessage
	}
	return typed.Message()
}

// writeJSON marks every response uncacheable since bodies reflect per-session state.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
