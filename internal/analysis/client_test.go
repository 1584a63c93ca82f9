package analysis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/config"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

const sampleResult = `{
	"success": true,
	"predicted_traits": {"disease_resistance": "High", "yield": "Medium"},
	"predicted_genotype": {"genotype_id": "G07", "description": "Vigorous"},
	"weather": {"temp": 27.5},
	"breeding_recommendations": [{"hybrid_name": "Arka Rakshak", "maturity_days": 75}],
	"replacement_recommendations": [{"hybrid_name": "Pusa Ruby", "maturity_days": 65}]
}`

type recordingMetrics struct{ outcomes []string }

func (m *recordingMetrics) ObserveAnalysis(outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
}

func newTestClient(t *testing.T, baseURL string, metrics Metrics) *Client {
	t.Helper()
	client, err := NewClient(config.AnalysisConfig{
		BaseURL:          baseURL,
		Timeout:          time.Second,
		BreakerFailures:  2,
		BreakerOpenDelay: time.Minute,
	}, logger.Nop(), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestAnalyzePostsMultipartUpload(t *testing.T) {
	var gotLocation, gotFilename, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/complete" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "bad", http.StatusInternalServerError)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotContent = string(data)
		gotLocation = r.FormValue("location")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResult))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	client := newTestClient(t, server.URL+"/", metrics)
	result, err := client.Analyze(context.Background(), Upload{Filename: "leaf.JPG", Content: []byte("pixels")})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if gotFilename != "leaf.JPG" || gotContent != "pixels" {
		t.Fatalf("unexpected upload %q %q", gotFilename, gotContent)
	}
	if gotLocation != "Bangalore,IN" {
		t.Fatalf("expected default location, got %q", gotLocation)
	}
	if result.GenotypeID() != "G07" || len(result.BreedingRecommendations) != 1 || result.IsSeverelyDiseased() {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "success" {
		t.Fatalf("unexpected metric outcomes %v", metrics.outcomes)
	}
}

func TestAnalyzeForwardsLocation(t *testing.T) {
	var gotLocation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocation = r.FormValue("location")
		_, _ = w.Write([]byte(sampleResult))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	if _, err := client.Analyze(context.Background(), Upload{Filename: "leaf.png", Content: []byte("x"), Location: "Mysuru,IN"}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if gotLocation != "Mysuru,IN" {
		t.Fatalf("unexpected location %q", gotLocation)
	}
}

func TestAnalyzeRejectsUnsupportedUploads(t *testing.T) {
	client := newTestClient(t, "http://analysis.invalid", nil)
	cases := []Upload{
		{Filename: "", Content: []byte("x")},
		{Filename: "leaf.gif", Content: []byte("x")},
		{Filename: "leaf.png"},
	}
	for _, upload := range cases {
		_, err := client.Analyze(context.Background(), upload)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("upload %+v: expected validation error, got %v", upload, err)
		}
	}
}

func TestAnalyzeMapsBackendRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid file type"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	for i := 0; i < 3; i++ {
		_, err := client.Analyze(context.Background(), Upload{Filename: "leaf.png", Content: []byte("x")})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("attempt %d: expected validation error, got %v", i, err)
		}
		details, _ := typed.Details().(map[string]any)
		if details["reason"] != "Invalid file type" {
			t.Fatalf("unexpected details %v", typed.Details())
		}
	}
}

func TestAnalyzeOpensBreakerAfterFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	client := newTestClient(t, server.URL, metrics)
	upload := Upload{Filename: "leaf.png", Content: []byte("x")}
	for i := 0; i < 2; i++ {
		if _, err := client.Analyze(context.Background(), upload); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			t.Fatalf("attempt %d: expected dependency error, got %v", i, err)
		}
	}

	_, err := client.Analyze(context.Background(), upload)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error while open, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open breaker should short-circuit, backend saw %d calls", calls)
	}
	if got := metrics.outcomes[len(metrics.outcomes)-1]; got != "breaker_open" {
		t.Fatalf("expected breaker_open outcome, got %s", got)
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.Analyze(context.Background(), Upload{Filename: "leaf.jpeg", Content: []byte("x")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.AnalysisConfig{}, logger.Nop()); err == nil {
		t.Fatal("expected missing base url to fail")
	}
}
