// Package trigger calls the API's manual entry points from the command line.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts to a running API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

// Response is a decoded API answer along with its status code.
type Response struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// ProcessCompletions runs one completion sweep.
func (c *Client) ProcessCompletions(ctx context.Context) (*Response, error) {
	return c.post(ctx, "/v1/process-completed-predictions", struct{}{})
}

// ImageRequest mirrors the image submission payload.
type ImageRequest struct {
	ProjectID        string `json:"project_id"`
	JobID            string `json:"job_id,omitempty"`
	ManualGeneration bool   `json:"manual_generation"`
}

// GenerateImage submits an image generation and waits for its answer.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*Response, error) {
	return c.post(ctx, "/v1/generate-image", req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	out := &Response{StatusCode: resp.StatusCode, Raw: raw}
	// Plain-text errors are left in Raw.
	_ = json.Unmarshal(raw, &out.Body)
	return out, nil
}
