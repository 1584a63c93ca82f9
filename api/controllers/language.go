package controllers

import (
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/api/validators"
	"github.com/agrigenai/agrigen-backend/internal/language"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

type languageRequest struct {
	Language string `json:"language" validate:"required,max=8"`
}

type languageOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type languageResponse struct {
	Language  language.Code    `json:"language"`
	Supported []languageOption `json:"supported"`
}

func newLanguageResponse(current language.Code) languageResponse {
	options := make([]languageOption, 0, len(language.Supported))
	for _, code := range language.Supported {
		options = append(options, languageOption{Code: string(code), Name: code.NativeName()})
	}
	return languageResponse{Language: current, Supported: options}
}

func LanguageFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLanguageResponse(sess.Language()))
	}
}

func LanguageUpdate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body languageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := sess.SetLanguage(r.Context(), body.Language)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLanguageResponse(code))
	}
}
