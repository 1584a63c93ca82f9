package controllers

import (
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/api/validators"
	"github.com/agrigenai/agrigen-backend/internal/identity"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

type identityResponse struct {
	SignedIn bool               `json:"signed_in"`
	Identity *identity.Identity `json:"identity"`
}

// AuthLogin signs the session in with any well-formed credentials.
func AuthLogin(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body identity.Credentials
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		who, err := sess.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, identityResponse{SignedIn: true, Identity: &who})
	}
}

// AuthSignup registers the user and signs the session in.
func AuthSignup(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body identity.SignupInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		who, err := sess.Signup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, identityResponse{SignedIn: true, Identity: &who})
	}
}

// AuthLogout signs out and empties the cart.
func AuthLogout(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sess.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, identityResponse{})
	}
}

func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, ok := sess.Identity()
		if !ok {
			responses.WriteSuccess(w, identityResponse{})
			return
		}
		responses.WriteSuccess(w, identityResponse{SignedIn: true, Identity: &who})
	}
}
