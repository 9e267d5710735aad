package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Request defaults
const (
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

// TokenSource supplies the bearer token for each request
type TokenSource interface {
	Token() string
}

// Client talks to the claims backend. Every request goes through the same
// retry and timeout policy; nothing else is shared between requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	policy     policy
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

type policy struct {
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
	header     http.Header
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithDefaults overrides the default retry count, retry delay and timeout
func WithDefaults(retries int, retryDelay, timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.policy.retries = retries
		c.policy.retryDelay = retryDelay
		c.policy.timeout = timeout
	}
}

// RequestOption overrides the policy for one request
type RequestOption func(*policy)

// WithRetries sets how many times a failed attempt is retried
func WithRetries(n int) RequestOption {
	return func(p *policy) { p.retries = n }
}

// WithRetryDelay sets the base delay; attempt n waits n times this long
func WithRetryDelay(d time.Duration) RequestOption {
	return func(p *policy) { p.retryDelay = d }
}

// WithTimeout bounds the whole request including retries
func WithTimeout(d time.Duration) RequestOption {
	return func(p *policy) { p.timeout = d }
}

// WithHeader adds a request header
func WithHeader(key, value string) RequestOption {
	return func(p *policy) {
		if p.header == nil {
			p.header = http.Header{}
		}
		p.header.Add(key, value)
	}
}

// New creates a new API client
func New(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		policy: policy{
			retries:    DefaultRetries,
			retryDelay: DefaultRetryDelay,
			timeout:    DefaultTimeout,
		},
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FileURL resolves a backend-relative path such as a pdfUrl
func (c *Client) FileURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + path
}

// RawResponse is a successful response with its body fully read
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Get performs a GET and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out, opts...)
}

// Post performs a POST with a JSON or multipart body
func (c *Client) Post(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out, opts...)
}

// Delete performs a DELETE
func (c *Client) Delete(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, out, opts...)
}

// Do performs a request and decodes the JSON response into out.
// A nil out discards the body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	resp, err := c.DoRaw(ctx, method, endpoint, body, opts...)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// DoRaw performs a request with retries and returns the raw response.
//
// Network failures and 5xx responses are retried with a linearly growing
// delay. 4xx responses fail at once. The timeout covers every attempt; when
// it expires the in-flight call is aborted and a 408 error is returned.
func (c *Client) DoRaw(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*RawResponse, error) {
	p := c.policy
	for _, opt := range opts {
		opt(&p)
	}

	url := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		url = c.baseURL + endpoint
	}

	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		resp, err := c.attempt(reqCtx, method, url, payload, contentType, p.header)
		if err == nil {
			return resp, nil
		}

		if cerr := c.contextError(ctx, reqCtx, method, endpoint); cerr != nil {
			return nil, cerr
		}

		var aerr *Error
		if errors.As(err, &aerr) && aerr.Status >= 400 && aerr.Status < 500 {
			return nil, err
		}

		lastErr = err
		if attempt < p.retries {
			delay := p.retryDelay * time.Duration(attempt+1)
			c.logger.Warn("request failed, retrying",
				"method", method,
				"endpoint", endpoint,
				"attempt", attempt+1,
				"delay", delay,
				"error", err,
			)
			if err := c.sleep(reqCtx, delay); err != nil {
				if cerr := c.contextError(ctx, reqCtx, method, endpoint); cerr != nil {
					return nil, cerr
				}
				return nil, err
			}
		}
	}

	c.logger.Error("request failed after retries", "method", method, "endpoint", endpoint, "error", lastErr)
	return nil, lastErr
}

// contextError distinguishes caller cancellation from the request deadline
func (c *Client) contextError(parent, reqCtx context.Context, method, endpoint string) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("request timed out", "method", method, "endpoint", endpoint)
		return &Error{Status: http.StatusRequestTimeout, Detail: "Request timeout", Err: reqCtx.Err()}
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, contentType string, header http.Header) (*RawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Status: 0, Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: 0, Detail: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Detail: decodeDetail(resp.StatusCode, data)}
	}

	return &RawResponse{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// encodeBody serialises body once so every attempt replays the same bytes
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		// JSON is the default content type even without a body
		return nil, "application/json", nil
	case *Form:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		return data, "application/json", nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
