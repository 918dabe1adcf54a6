package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TokenProvider returns a bearer token for the given API base URL, or an
// empty string when the API is being used anonymously.
type TokenProvider func(ctx context.Context, baseURL string) (string, error)

// Default per-call timeouts. Submission is slow by design: the server ingests
// the archive synchronously before handing back a run id.
const (
	DefaultSubmitTimeout  = 8 * time.Minute
	DefaultStatusTimeout  = 10 * time.Second
	DefaultSummaryTimeout = 30 * time.Second

	defaultStatusRetries    = 2
	defaultStatusRetryDelay = 500 * time.Millisecond
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	Token   TokenProvider

	HTTPClient *http.Client

	SubmitTimeout  time.Duration
	StatusTimeout  time.Duration
	SummaryTimeout time.Duration
}

// Client talks to the analysis service. It is safe for sequential reuse
// across calls of one run; it holds no per-run state.
type Client struct {
	baseURL string
	token   TokenProvider
	httpc   *http.Client

	submitTimeout  time.Duration
	statusTimeout  time.Duration
	summaryTimeout time.Duration
}

// NewClient builds a Client from options, applying defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:        opts.BaseURL,
		token:          opts.Token,
		httpc:          opts.HTTPClient,
		submitTimeout:  opts.SubmitTimeout,
		statusTimeout:  opts.StatusTimeout,
		summaryTimeout: opts.SummaryTimeout,
	}
	if c.httpc == nil {
		c.httpc = &http.Client{}
	}
	if c.submitTimeout == 0 {
		c.submitTimeout = DefaultSubmitTimeout
	}
	if c.statusTimeout == 0 {
		c.statusTimeout = DefaultStatusTimeout
	}
	if c.summaryTimeout == 0 {
		c.summaryTimeout = DefaultSummaryTimeout
	}
	return c
}

// Submit uploads the archive and its processing configuration in a single
// attempt. Submission is never retried here: ingestion is expensive and not
// idempotent on the server side. The response is parsed strictly; a schema
// failure is returned as *SchemaError, transport and HTTP failures as
// *RequestError.
func (c *Client) Submit(ctx context.Context, file []byte, fileName string, cfg ScanConfig) (*SubmitResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}
	for k, v := range cfg.FormFields() {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("build multipart request: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/runs", &buf, w.FormDataContentType(), c.submitTimeout)
	if err != nil {
		return nil, err
	}
	return ParseSubmitResponse(body)
}

// CheckStatus queries the run's current status. The call is short and cheap,
// so it carries its own small retry for transport blips; the long-running
// tolerance policy lives in the polling loop, not here.
func (c *Client) CheckStatus(ctx context.Context, runID string) (*StatusResponse, error) {
	body, err := WithRetry(func() ([]byte, error) {
		return c.do(ctx, http.MethodGet, "/api/v1/runs/"+runID+"/status", nil, "", c.statusTimeout)
	}, defaultStatusRetries, defaultStatusRetryDelay)
	if err != nil {
		return nil, err
	}
	return ParseStatusResponse(body)
}

// ComputeSummary asks the server to compute the run summary. The result is
// parsed with schema defaults; see ParseSummary.
func (c *Client) ComputeSummary(ctx context.Context, runID string) (*Summary, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/runs/"+runID+"/summary", nil, "application/json", c.summaryTimeout)
	if err != nil {
		return nil, err
	}
	return ParseSummary(body)
}

// do executes one request. Failures come back as *RequestError: StatusCode 0
// with the transport error when no response arrived, or the status code and
// raw body when the server answered with a non-2xx.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.token != nil {
		token, err := c.token(ctx, c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("resolve API token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return respBody, nil
}
