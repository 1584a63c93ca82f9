package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrigenai/agrigen-backend/api/middleware"
	"github.com/agrigenai/agrigen-backend/internal/identity"
	"github.com/agrigenai/agrigen-backend/internal/session"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const healthyResult = `{
	"predicted_traits": {"disease_resistance": "High"},
	"predicted_genotype": {"genotype_id": "G03"},
	"breeding_recommendations": [{"hybrid_name": "Arka Samrat", "maturity_days": 70}],
	"replacement_recommendations": [{"hybrid_name": "Pusa Ruby", "maturity_days": 65}]
}`

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	manager, err := session.NewManager(session.ManagerParams{Store: kvstore.NewMemory(0), Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sess, err := manager.New(context.Background())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

func signedInSession(t *testing.T) *session.Session {
	t.Helper()
	sess := newTestSession(t)
	if _, err := sess.Login(context.Background(), identity.Credentials{Email: "ravi@farm.in", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	return sess
}

func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSession(req *http.Request, sess *session.Session) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), sess))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}
