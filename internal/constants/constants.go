package constants

import "time"

// Quota and scheduling defaults.
const (
	// DefaultRateLimitBuffer is the quota floor below which no call is dispatched.
	DefaultRateLimitBuffer = 300

	// DefaultCallLimit is the maximum number of in-flight requests.
	DefaultCallLimit = 30

	// DefaultMinSendInterval is the stagger delay between successive dispatches.
	DefaultMinSendInterval = 10 * time.Millisecond

	// DefaultCheckStatusInterval is how often a quota-blocked call re-checks capacity.
	DefaultCheckStatusInterval = 2 * time.Second

	// DefaultMaxAttempts bounds retries for transient network and 5xx failures.
	DefaultMaxAttempts = 3

	// DefaultQuotaRetryMax bounds requeues caused by throttle responses.
	DefaultQuotaRetryMax = 10
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Transport-level retry limits (connection errors only; status handling
// belongs to the scheduler).
const (
	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultCascadeConcurrency bounds concurrent sibling updates in a
	// cascade; the scheduler gate still applies underneath.
	DefaultCascadeConcurrency = 8
)

// Cache defaults.
const (
	// DefaultCacheSize is the maximum number of entries in the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default time-to-live for cached responses.
	DefaultCacheTTL = 30 * time.Second

	// DefaultCacheCleanupInterval is how often expired entries are evicted.
	DefaultCacheCleanupInterval = 1 * time.Minute
)
