// Package webhook provides an HTTP client for sending statistics reports to
// webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ccollicutt/logcat/pkg/analyzer"
	"github.com/ccollicutt/logcat/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody limits how much of a response body is kept.
const maxResponseBody = 1024 * 1024

// Client sends statistics reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new webhook client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Payload is the JSON document posted to webhooks. Entries are never sent.
type Payload struct {
	RunID          string              `json:"run_id"`
	Tool           string              `json:"tool"`
	SentAt         time.Time           `json:"sent_at"`
	Files          []string            `json:"files"`
	DetectedFormat string              `json:"detected_format"`
	Summary        string              `json:"summary"`
	HasErrors      bool                `json:"has_errors"`
	Statistics     analyzer.Statistics `json:"statistics"`
}

// NewPayload builds the webhook document for a report, with a fresh run id.
func NewPayload(report *output.Report) *Payload {
	files := report.Metadata.Files
	if files == nil {
		files = []string{}
	}
	return &Payload{
		RunID:          uuid.NewString(),
		Tool:           "logcat",
		SentAt:         time.Now().UTC(),
		Files:          files,
		DetectedFormat: report.DetectedFormat,
		Summary:        report.Statistics.Summary(),
		HasErrors:      report.HasErrors(),
		Statistics:     report.Statistics,
	}
}

// Response contains the result of a webhook request.
type Response struct {
	RunID      string
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts the statistics of a report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	payload := NewPayload(report)
	resp := &Response{RunID: payload.RunID}

	body, err := json.Marshal(payload)
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	// Apply timeout
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logcat-webhook")
	req.Header.Set("X-Logcat-Run-Id", payload.RunID)
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	c.logger.Debug("sending webhook",
		zap.String("url", opts.URL),
		zap.String("run_id", payload.RunID),
		zap.Int("bytes", len(body)))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(respBody)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}
