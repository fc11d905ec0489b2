// Package client provides the concrete canvas.Client, wiring the transport,
// quota monitor, request scheduler, and optional response cache.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/edukit-io/canvas-client/internal/constants"
	insthttp "github.com/edukit-io/canvas-client/internal/http"
	"github.com/edukit-io/canvas-client/internal/quota"
	"github.com/edukit-io/canvas-client/internal/scheduler"
	"github.com/edukit-io/canvas-client/pkg/canvas"
)

// Client implements canvas.Client.
var _ canvas.Client = (*Client)(nil)

type Client struct {
	httpClient *insthttp.Client
	monitor    *quota.Monitor
	sched      *scheduler.Scheduler
	cache      canvas.Cache
	cacheTTL   time.Duration
	logger     canvas.Logger
	courses    *canvas.Collection
}

// New creates a client from configuration. The access token falls back to
// the CANVAS_API_TOKEN environment variable.
func New(ctx context.Context, config *canvas.Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		if config.Subdomain == "" {
			return nil, canvas.ErrSubdomainRequired
		}

		baseURL = fmt.Sprintf("https://%s.instructure.com/api/v1", config.Subdomain)
	}

	token := config.AccessToken
	if token == "" {
		token = os.Getenv(canvas.TokenEnvVar)
	}

	if token == "" {
		return nil, canvas.ErrTokenRequired
	}

	httpClient := insthttp.NewClient(baseURL, token, httpOptions(config)...)
	monitor := quota.NewMonitor(config.RateLimitBuffer, config.CheckStatusInterval)
	sched := scheduler.New(httpClient, monitor, scheduler.Config{
		CallLimit:       config.CallLimit,
		MinSendInterval: config.MinSendInterval,
		MaxAttempts:     config.MaxAttempts,
		QuotaRetryMax:   config.QuotaRetryMax,
		Logger:          config.Logger,
	})

	cache, err := canvas.NewCacheFromConfig(config.Cache)
	if err != nil {
		sched.Close()

		return nil, fmt.Errorf("building response cache: %w", err)
	}

	cacheTTL := constants.DefaultCacheTTL
	if config.Cache != nil && config.Cache.TTL > 0 {
		cacheTTL = config.Cache.TTL
	}

	client := &Client{
		httpClient: httpClient,
		monitor:    monitor,
		sched:      sched,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     config.Logger,
	}

	client.courses, err = canvas.NewRootCollection(client, "course")
	if err != nil {
		sched.Close()

		return nil, err
	}

	return client, nil
}

// httpOptions builds transport options from config.
func httpOptions(config *canvas.Config) []insthttp.Option {
	var opts []insthttp.Option

	if config.Logger != nil {
		opts = append(opts, insthttp.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, insthttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, insthttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, insthttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, insthttp.WithRetryConfig(constants.DefaultMaxAttempts, waitMin, waitMax))
	}

	return opts
}

// Courses implements canvas.Client.Courses.
func (c *Client) Courses() *canvas.Collection {
	return c.courses
}

// Course implements canvas.Client.Course.
func (c *Client) Course(id string) *canvas.Node {
	return c.courses.Shell(id)
}

// Submit implements canvas.Submitter, consulting the response cache for
// GET requests when one is configured.
func (c *Client) Submit(ctx context.Context, req *canvas.Request) (*canvas.Response, error) {
	cacheable := req.Method == http.MethodGet

	var key string

	if cacheable {
		key = c.httpClient.URLFor(req)

		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			return &canvas.Response{
				StatusCode: entry.StatusCode,
				Body:       entry.Body,
			}, nil
		}
	}

	resp, err := c.sched.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	// Pages that carry a next cursor are never cached: serving one from
	// cache would sever the pagination chain.
	if cacheable && resp.StatusCode == http.StatusOK && resp.NextPage == "" {
		_ = c.cache.Set(ctx, key, &canvas.CacheEntry{
			Body:       resp.Body,
			StatusCode: resp.StatusCode,
			StoredAt:   time.Now(),
			TTL:        c.cacheTTL,
		})
	}

	return resp, nil
}

// FetchAll implements canvas.API.FetchAll via the pagination aggregator.
// Pages go through the scheduler directly; the cache applies only to
// whole single GETs submitted through Submit.
func (c *Client) FetchAll(ctx context.Context, req *canvas.Request) ([]json.RawMessage, error) {
	return canvas.FetchAll(ctx, c.sched, req)
}

// OnRequest implements canvas.Client.OnRequest.
func (c *Client) OnRequest(hook canvas.RequestHook) {
	c.sched.OnRequest(hook)
}

// Remaining implements canvas.Client.Remaining.
func (c *Client) Remaining() (float64, bool) {
	return c.monitor.Remaining()
}

// Close implements canvas.Client.Close.
func (c *Client) Close() {
	c.sched.Close()

	if memory, ok := c.cache.(*canvas.MemoryCache); ok {
		memory.Close()
	}

	if nats, ok := c.cache.(*canvas.NATSKVCache); ok {
		nats.Close()
	}
}
