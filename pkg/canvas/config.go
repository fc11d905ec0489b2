package canvas

import "time"

// TokenEnvVar is consulted when Config.AccessToken is empty.
const TokenEnvVar = "CANVAS_API_TOKEN"

// Config represents client configuration for building a canvas.Client.
//
// # Quota tuning
//
// The scheduler never dispatches while the server-reported remaining quota is
// below RateLimitBuffer. CallLimit bounds concurrent in-flight requests,
// MinSendInterval staggers dispatch starts so a full window of calls does not
// fire in the same instant, and CheckStatusInterval is how often a blocked
// call re-checks capacity. Zero values take the package defaults.
type Config struct {
	// Subdomain is the institution subdomain; "myschool" targets
	// https://myschool.instructure.com/api/v1.
	Subdomain string

	// BaseURL overrides the URL derived from Subdomain, mainly for tests
	// and self-hosted installs. It must include the API prefix.
	BaseURL string

	// AccessToken is the bearer token. If empty, CANVAS_API_TOKEN is used.
	AccessToken string

	// RateLimitBuffer is the quota floor; below it dispatch suspends.
	RateLimitBuffer float64

	// CallLimit is the maximum number of concurrent in-flight calls.
	CallLimit int

	// MinSendInterval is the minimum delay between successive dispatches.
	MinSendInterval time.Duration

	// CheckStatusInterval is the poll interval while waiting for quota.
	CheckStatusInterval time.Duration

	// MaxAttempts bounds retries of transient network and 5xx failures.
	MaxAttempts int

	// QuotaRetryMax bounds requeues of a single call caused by throttle
	// responses.
	QuotaRetryMax int

	// HTTPTimeout is the per-request transport timeout.
	HTTPTimeout time.Duration

	// RetryWaitMin and RetryWaitMax tune transport-level backoff for
	// connection errors. Status-based retry is owned by the scheduler.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Cache configures the optional response cache for single-item GETs.
	// Nil disables caching.
	Cache *CacheConfig

	// Debug enables verbose HTTP request/response logging when a Logger
	// is provided.
	Debug bool

	// Logger is an optional structured logger used by the transport and
	// scheduler.
	Logger Logger

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}
