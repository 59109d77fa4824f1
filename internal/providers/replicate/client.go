// Package replicate is a minimal client for the Replicate predictions API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/infra"
	"genstudio/internal/metrics"
)

// ErrMissingToken indicates that the client was configured without credentials.
var ErrMissingToken = errors.New("replicate: api token is required")

// ErrUnexpectedOutput is returned when a prediction output does not have the requested shape.
var ErrUnexpectedOutput = errors.New("replicate: unexpected output format")

// Status is the provider-side state of a prediction.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusAborted    Status = "aborted"
)

// Terminal reports whether the provider will not change the prediction anymore.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled, StatusAborted:
		return true
	}
	return false
}

// Options configures the client.
type Options struct {
	APIToken     string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// Client performs HTTP calls to the predictions API.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

// CreateRequest describes a prediction to start.
type CreateRequest struct {
	// Version is a version id or an "owner/model[:version]" reference.
	Version string
	Input   map[string]any
	// Webhook receives provider callbacks when non-empty.
	Webhook       string
	WebhookEvents []string
	// Wait asks the provider to hold the response until the prediction
	// settles or its own wait window expires.
	Wait bool
}

type createPayload struct {
	Version             string         `json:"version"`
	Input               map[string]any `json:"input"`
	Webhook             string         `json:"webhook,omitempty"`
	WebhookEventsFilter []string       `json:"webhook_events_filter,omitempty"`
}

// Prediction mirrors the provider's prediction resource.
type Prediction struct {
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	Status      Status          `json:"status"`
	Input       map[string]any  `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
	Logs        string          `json:"logs,omitempty"`
	Metrics     Metrics         `json:"metrics"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Metrics carries provider-side timings.
type Metrics struct {
	PredictTime *float64 `json:"predict_time,omitempty"`
}

// ErrorMessage flattens the provider error, which may be a string or an object.
func (p *Prediction) ErrorMessage() string {
	raw := bytes.TrimSpace(p.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// OutputString returns the output when it is exactly one string.
func (p *Prediction) OutputString() (string, error) {
	var s string
	if err := json.Unmarshal(p.Output, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedOutput, summarize(p.Output))
	}
	return s, nil
}

// OutputURL accepts a single string or the first element of a string list.
func (p *Prediction) OutputURL() (string, error) {
	if s, err := p.OutputString(); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil && len(list) > 0 && strings.TrimSpace(list[0]) != "" {
		return list[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnexpectedOutput, summarize(p.Output))
}

func summarize(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty output"
	}
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("replicate: status %d: %s", e.StatusCode, msg)
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.APIToken)
	if token == "" {
		return nil, ErrMissingToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return &Client{
		token:        token,
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: poll,
	}, nil
}

// CreatePrediction starts a prediction and returns the provider's view of it.
func (c *Client) CreatePrediction(ctx context.Context, req CreateRequest) (pred *Prediction, err error) {
	defer metrics.ObserveProviderCall("create_prediction", time.Now(), &err)

	if strings.TrimSpace(req.Version) == "" {
		return nil, errors.New("replicate: version is required")
	}
	payload := createPayload{
		Version: req.Version,
		Input:   req.Input,
		Webhook: req.Webhook,
	}
	if req.Webhook != "" {
		payload.WebhookEventsFilter = req.WebhookEvents
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Wait {
		httpReq.Header.Set("Prefer", "wait")
	}

	pred = &Prediction{}
	if err := c.do(httpReq, pred); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("prediction_id", pred.ID).
		Str("status", string(pred.Status)).
		Str("version", req.Version).
		Msg("replicate: prediction created")
	return pred, nil
}

// GetPrediction fetches the current state of a prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (pred *Prediction, err error) {
	defer metrics.ObserveProviderCall("get_prediction", time.Now(), &err)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("replicate: prediction id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	pred = &Prediction{}
	if err := c.do(httpReq, pred); err != nil {
		return nil, err
	}
	return pred, nil
}

// Run creates a prediction and blocks until it reaches a terminal state or
// ctx is done. The returned prediction may be failed or canceled; callers
// inspect Status.
func (c *Client) Run(ctx context.Context, req CreateRequest) (*Prediction, error) {
	req.Wait = true
	pred, err := c.CreatePrediction(ctx, req)
	if err != nil {
		return nil, err
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for !pred.Status.Terminal() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("replicate: waiting for prediction %s: %w", pred.ID, ctx.Err())
		case <-ticker.C:
		}
		next, err := c.GetPrediction(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
		pred = next
	}
	return pred, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &detail); err == nil {
			apiErr.Title = detail.Title
			apiErr.Detail = detail.Detail
		}
		if apiErr.Title == "" && apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}
