package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrigenai/agrigen-backend/internal/analysis"
	"github.com/agrigenai/agrigen-backend/internal/recommendations"
	"github.com/agrigenai/agrigen-backend/internal/session"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
)

type stubAnalyzer struct {
	upload analysis.Upload
	result recommendations.AnalysisResult
	err    error
}

func (s *stubAnalyzer) Analyze(_ context.Context, upload analysis.Upload) (recommendations.AnalysisResult, error) {
	s.upload = upload
	return s.result, s.err
}

func multipartRequest(t *testing.T, filename string, content []byte, location string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(content)
	}
	if location != "" {
		writer.WriteField("location", location)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func parsedHealthyResult(t *testing.T) recommendations.AnalysisResult {
	t.Helper()
	result, err := recommendations.ParseResult([]byte(healthyResult))
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	return result
}

func TestAnalysisUploadLoadsResult(t *testing.T) {
	sess := signedInSession(t)
	analyzer := &stubAnalyzer{result: parsedHealthyResult(t)}

	req := withSession(multipartRequest(t, "leaf.jpg", []byte("jpeg-bytes"), "  Mysuru,IN "), sess)
	resp := serve(AnalysisUpload(analyzer, 5, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if analyzer.upload.Filename != "leaf.jpg" || string(analyzer.upload.Content) != "jpeg-bytes" {
		t.Fatalf("unexpected upload forwarded %+v", analyzer.upload)
	}
	if analyzer.upload.Location != "Mysuru,IN" {
		t.Fatalf("expected trimmed location, got %q", analyzer.upload.Location)
	}

	var body struct {
		Selection session.SelectionView `json:"selection"`
	}
	decodeEnvelope(t, resp, &body)
	if !body.Selection.HasResult || body.Selection.GenotypeID != "G03" {
		t.Fatalf("unexpected selection %+v", body.Selection)
	}
}

func TestAnalysisUploadRequiresFile(t *testing.T) {
	analyzer := &stubAnalyzer{}
	resp := serve(AnalysisUpload(analyzer, 5, nil), withSession(multipartRequest(t, "", nil, "Bangalore,IN"), signedInSession(t)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAnalysisUploadSurfacesBackendFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: pkgerrors.New(pkgerrors.CodeDependency, "analysis backend unavailable")}
	sess := signedInSession(t)

	resp := serve(AnalysisUpload(analyzer, 5, nil), withSession(multipartRequest(t, "leaf.png", []byte("png"), ""), sess))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if sess.Selection().HasResult {
		t.Fatal("failed analysis must not load a result")
	}
}

func TestAnalysisLoadResultRejectsMalformedJSON(t *testing.T) {
	resp := serve(AnalysisLoadResult(nil), withSession(newJSONRequest(t, http.MethodPut, "/api/v1/analysis/result", "{not json"), signedInSession(t)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSelectionAdjustAndCommit(t *testing.T) {
	sess := signedInSession(t)
	resp := serve(AnalysisLoadResult(nil), withSession(newJSONRequest(t, http.MethodPut, "/api/v1/analysis/result", healthyResult), sess))
	if resp.Code != http.StatusOK {
		t.Fatalf("load result: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = serve(SelectionAdjust(nil), withSession(newJSONRequest(t, http.MethodPost, "/api/v1/selection/adjust", map[string]any{"slot": "breeding-0", "delta": 2}), sess))
	if resp.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var view session.SelectionView
	decodeEnvelope(t, resp, &view)
	if view.TotalSelected != 2 || view.Selection["breeding-0"] != 2 {
		t.Fatalf("unexpected selection %+v", view)
	}

	resp = serve(SelectionCommit(nil), withSession(newJSONRequest(t, http.MethodPost, "/api/v1/selection/commit", nil), sess))
	if resp.Code != http.StatusOK {
		t.Fatalf("commit: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var outcome struct {
		Units int64  `json:"units"`
		Next  string `json:"next"`
	}
	decodeEnvelope(t, resp, &outcome)
	if outcome.Units != 2 || outcome.Next != "/cart" {
		t.Fatalf("unexpected commit outcome %+v", outcome)
	}
	if got := sess.Cart(); got.Count != 2 || got.Total != 2*recommendations.DefaultUnitPrice {
		t.Fatalf("unexpected cart after commit %+v", got)
	}
}

func TestSelectionAdjustRejectsUnknownSlot(t *testing.T) {
	sess := signedInSession(t)
	sess.LoadResult(parsedHealthyResult(t))

	resp := serve(SelectionAdjust(nil), withSession(newJSONRequest(t, http.MethodPost, "/api/v1/selection/adjust", map[string]any{"slot": "hybrid-0", "delta": 1}), sess))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSelectionCommitWithoutResultConflicts(t *testing.T) {
	resp := serve(SelectionCommit(nil), withSession(newJSONRequest(t, http.MethodPost, "/api/v1/selection/commit", nil), signedInSession(t)))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
