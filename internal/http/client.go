// Package http is the transport layer: it turns canvas.Request values into
// authenticated HTTP calls and decodes the quota and pagination signals every
// response carries. Status-code policy (throttle requeue, retry, terminal
// errors) deliberately lives in the scheduler, not here; this layer only
// retries connection-level failures.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/edukit-io/canvas-client/internal/constants"
	"github.com/edukit-io/canvas-client/pkg/canvas"
)

// RateLimitHeader carries the server's remaining-quota signal.
const RateLimitHeader = "X-Rate-Limit-Remaining"

const defaultUserAgent = "canvas-client/1.0"

// Client sends individual requests. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *retryablehttp.Client
	logger     canvas.Logger
	debug      bool
	userAgent  string
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger canvas.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging when a logger is set.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig tunes connection-level retry behavior.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// NewClient creates a transport client for the given API base URL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	// Retry only connection errors. Responses, whatever their status,
	// must reach the scheduler so the quota signal is observed.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		return resp == nil && err != nil, nil
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: retryClient,
		userAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do sends one request and decodes the response envelope. Non-2xx statuses
// are not errors at this layer; the returned error is reserved for request
// construction and connection failures.
func (c *Client) Do(ctx context.Context, req *canvas.Request) (*canvas.Response, error) {
	fullURL, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader

	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, fullURL, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &canvas.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		Remaining:  parseRemaining(httpResp.Header),
		NextPage:   parseNextLink(httpResp.Header),
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": resp.StatusCode,
		})
	}

	return resp, nil
}

// URLFor resolves a request to the absolute URL it would be sent to.
func (c *Client) URLFor(req *canvas.Request) string {
	fullURL, err := c.buildURL(req)
	if err != nil {
		return req.Path
	}

	return fullURL
}

func (c *Client) buildURL(req *canvas.Request) (string, error) {
	base := req.Path

	// Pagination cursors arrive as absolute URLs; everything else is
	// relative to the API base.
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing request path %q: %w", req.Path, err)
	}

	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}

		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

// parseRemaining extracts the quota signal, nil when the header is absent
// or malformed.
func parseRemaining(headers http.Header) *float64 {
	raw := headers.Get(RateLimitHeader)
	if raw == "" {
		return nil
	}

	remaining, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}

	return &remaining
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// parseNextLink extracts the rel="next" cursor from the Link header, empty
// on the terminal page.
func parseNextLink(headers http.Header) string {
	for _, link := range headers.Values("Link") {
		match := nextLinkPattern.FindStringSubmatch(link)
		if match != nil {
			return match[1]
		}
	}

	return ""
}
