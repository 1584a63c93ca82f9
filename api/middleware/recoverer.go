package middleware

import (
	"fmt"
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR envelope. http.ErrAbortHandler is
// re-raised so net/http can abort the connection as the handler asked.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				err := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
					logg.Error(ctx, "http.panic_recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected failure"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
