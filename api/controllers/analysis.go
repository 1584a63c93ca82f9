package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/api/validators"
	"github.com/agrigenai/agrigen-backend/internal/analysis"
	"github.com/agrigenai/agrigen-backend/internal/recommendations"
	"github.com/agrigenai/agrigen-backend/internal/session"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

const (
	maxResultBytes    int64 = 2 << 20
	maxLocationLength       = 120
	maxSlotLength           = 32
)

// Analyzer submits plant images to the analysis backend.
type Analyzer interface {
	Analyze(ctx context.Context, upload analysis.Upload) (recommendations.AnalysisResult, error)
}

type analysisResponse struct {
	Result    recommendations.AnalysisResult `json:"result"`
	Selection session.SelectionView          `json:"selection"`
}

type adjustRequest struct {
	Slot  string `json:"slot" validate:"required,max=32"`
	Delta int64  `json:"delta" validate:"required"`
}

type commitResponse struct {
	session.CommitOutcome
	Next string `json:"next"`
}

// AnalysisUpload proxies a multipart image upload to the analysis backend and loads the result
// into the session, starting a fresh selection.
func AnalysisUpload(analyzer Analyzer, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if analyzer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "analysis backend not configured"))
			return
		}
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := readUpload(w, r, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := analyzer.Analyze(r.Context(), upload)
		if err != nil {
			if pkgerrors.Retryable(err) && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "filename", upload.Filename), "analysis.upload_failed")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, analysisResponse{Result: result, Selection: sess.LoadResult(result)})
	}
}

func readUpload(w http.ResponseWriter, r *http.Request, maxUploadMB int) (analysis.Upload, error) {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	limit := int64(maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return analysis.Upload{}, pkgerrors.New(pkgerrors.CodeValidation, "image too large").
				WithDetails(map[string]any{"max_mb": maxUploadMB})
		}
		return analysis.Upload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return analysis.Upload{}, pkgerrors.Invalid("image file is required", map[string]string{"file": "is required"})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return analysis.Upload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image file")
	}
	return analysis.Upload{
		Filename: header.Filename,
		Content:  content,
		Location: validators.SanitizeString(r.FormValue("location"), maxLocationLength),
	}, nil
}

// AnalysisLoadResult installs an analysis result computed elsewhere.
func AnalysisLoadResult(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxResultBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read analysis result"))
			return
		}
		result, err := recommendations.ParseResult(data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid analysis result"))
			return
		}
		responses.WriteSuccess(w, analysisResponse{Result: result, Selection: sess.LoadResult(result)})
	}
}

func SelectionFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess.Selection())
	}
}

// SelectionAdjust changes the quantity chosen for one recommendation by delta.
func SelectionAdjust(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot, err := recommendations.ParseSlot(validators.SanitizeString(body.Slot, maxSlotLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := sess.Adjust(slot, body.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// SelectionCommit moves the selection into the cart and points the client at checkout.
func SelectionCommit(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := sess.Commit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "units", outcome.Units), "selection.committed")
		}
		responses.WriteSuccess(w, commitResponse{CommitOutcome: outcome, Next: cartPath})
	}
}
