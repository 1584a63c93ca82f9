package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/agrigenai/agrigen-backend/internal/recommendations"
	"github.com/agrigenai/agrigen-backend/pkg/config"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/sony/gobreaker/v2"
)

const (
	completePath               = "api/complete"
	responseErrorLimit  int64  = 1024
	defaultTimeout             = 60 * time.Second
	defaultLocation            = "Bangalore,IN"
	defaultBreakerTrip  uint32 = 5
	defaultBreakerDelay        = 30 * time.Second
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Upload is one plant image submitted for analysis.
type Upload struct {
	Filename string
	Content  []byte
	Location string
}

type Metrics interface {
	ObserveAnalysis(outcome string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAnalysis(string, time.Duration) {}

// Client proxies image uploads to the analysis backend behind a circuit breaker.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	defaultLocation string
	breaker         *gobreaker.CircuitBreaker[recommendations.AnalysisResult]
	logg            *logger.Logger
	metrics         Metrics
	now             func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// NewClient builds the analysis client from configuration.
func NewClient(cfg config.AnalysisConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("analysis base url is required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	location := strings.TrimSpace(cfg.DefaultLocation)
	if location == "" {
		location = defaultLocation
	}

	client := &Client{
		httpClient:      &http.Client{Timeout: timeout},
		baseURL:         baseURL,
		defaultLocation: location,
		logg:            logg,
		metrics:         noopMetrics{},
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.breaker = gobreaker.NewCircuitBreaker[recommendations.AnalysisResult](breakerSettings(cfg, logg))
	return client, nil
}

func breakerSettings(cfg config.AnalysisConfig, logg *logger.Logger) gobreaker.Settings {
	trip := cfg.BreakerFailures
	if trip == 0 {
		trip = defaultBreakerTrip
	}
	delay := cfg.BreakerOpenDelay
	if delay <= 0 {
		delay = defaultBreakerDelay
	}
	return gobreaker.Settings{
		Name:        "analysis-backend",
		MaxRequests: 1,
		Timeout:     delay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		// rejected uploads are the caller's fault and must not open the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || pkgerrors.IsCode(err, pkgerrors.CodeValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "analysis.breaker_state_changed")
		},
	}
}

// Analyze submits upload to the backend and decodes the resulting analysis.
func (c *Client) Analyze(ctx context.Context, upload Upload) (recommendations.AnalysisResult, error) {
	if c == nil {
		return recommendations.AnalysisResult{}, pkgerrors.New(pkgerrors.CodeDependency, "analysis client not configured")
	}
	if err := validateUpload(upload); err != nil {
		return recommendations.AnalysisResult{}, err
	}
	location := strings.TrimSpace(upload.Location)
	if location == "" {
		location = c.defaultLocation
	}

	started := c.now()
	result, err := c.breaker.Execute(func() (recommendations.AnalysisResult, error) {
		return c.complete(ctx, upload, location)
	})
	elapsed := c.now().Sub(started)

	switch {
	case err == nil:
		c.metrics.ObserveAnalysis("success", elapsed)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ObserveAnalysis("breaker_open", elapsed)
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analysis backend unavailable")
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		c.metrics.ObserveAnalysis("rejected", elapsed)
		return recommendations.AnalysisResult{}, err
	default:
		c.metrics.ObserveAnalysis("failure", elapsed)
		c.logg.Error(c.logg.WithField(ctx, "filename", upload.Filename), "analysis.request_failed", err)
		return recommendations.AnalysisResult{}, err
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, upload Upload, location string) (recommendations.AnalysisResult, error) {
	body, contentType, err := encodeUpload(upload, location)
	if err != nil {
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode analysis upload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+completePath, body)
	if err != nil {
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build analysis request")
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute analysis request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseErrorLimit))
		reason := backendError(msg)
		if resp.StatusCode == http.StatusBadRequest {
			return recommendations.AnalysisResult{}, pkgerrors.New(pkgerrors.CodeValidation, "image rejected by analysis backend").
				WithDetails(map[string]any{"reason": reason})
		}
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, reason), "analysis request failed")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read analysis response")
	}
	result, err := recommendations.ParseResult(data)
	if err != nil {
		return recommendations.AnalysisResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode analysis response")
	}
	return result, nil
}

func validateUpload(upload Upload) error {
	name := strings.TrimSpace(upload.Filename)
	if name == "" {
		return pkgerrors.Invalid("image file is required", map[string]string{"file": "is required"})
	}
	if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return pkgerrors.Invalid("unsupported image type", map[string]string{"file": "must be a .jpg, .jpeg or .png image"})
	}
	if len(upload.Content) == 0 {
		return pkgerrors.Invalid("image file is empty", map[string]string{"file": "is empty"})
	}
	return nil
}

func encodeUpload(upload Upload, location string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(upload.Filename))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Content); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("location", location); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func backendError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
