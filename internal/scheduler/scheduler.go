// Package scheduler owns the admission queue between callers and the
// transport. One dispatcher goroutine admits calls in FIFO order, bounded by
// the concurrency gate and the quota monitor, with a stagger delay between
// successive admissions so a full window of calls never fires in the same
// instant. Quota-retried calls re-enter at the queue front, ahead of calls
// that have never been attempted, so forward progress resumes as soon as
// capacity returns.
package scheduler

import (
	"container/list"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/edukit-io/canvas-client/internal/constants"
	"github.com/edukit-io/canvas-client/internal/quota"
	"github.com/edukit-io/canvas-client/pkg/canvas"
)

// Doer sends a single request. Implemented by the transport layer.
type Doer interface {
	Do(ctx context.Context, req *canvas.Request) (*canvas.Response, error)
	URLFor(req *canvas.Request) string
}

// Result is the terminal outcome of a scheduled call.
type Result struct {
	Response *canvas.Response
	Err      error
}

// Config tunes the scheduler.
type Config struct {
	// CallLimit bounds concurrent in-flight requests.
	CallLimit int

	// MinSendInterval is the stagger delay between admissions.
	MinSendInterval time.Duration

	// MaxAttempts bounds dispatches per call for network and 5xx failures.
	MaxAttempts int

	// QuotaRetryMax bounds requeues caused by throttle responses.
	QuotaRetryMax int

	// Logger is optional.
	Logger canvas.Logger
}

type call struct {
	ctx          context.Context
	req          *canvas.Request
	done         chan Result
	attempts     int
	quotaRetries int
}

func (c *call) resolve(resp *canvas.Response) {
	c.done <- Result{Response: resp}
}

func (c *call) fail(err error) {
	c.done <- Result{Err: err}
}

// Scheduler coordinates all outbound calls.
type Scheduler struct {
	doer    Doer
	monitor *quota.Monitor
	logger  canvas.Logger

	callLimit     int
	maxAttempts   int
	quotaRetryMax int
	stagger       *rate.Limiter

	mu       sync.Mutex
	cond     *sync.Cond
	queue    *list.List
	inflight int
	closed   bool
	hook     canvas.RequestHook
}

// New creates a scheduler and starts its dispatcher.
func New(doer Doer, monitor *quota.Monitor, cfg Config) *Scheduler {
	if cfg.CallLimit <= 0 {
		cfg.CallLimit = constants.DefaultCallLimit
	}

	if cfg.MinSendInterval <= 0 {
		cfg.MinSendInterval = constants.DefaultMinSendInterval
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultMaxAttempts
	}

	if cfg.QuotaRetryMax <= 0 {
		cfg.QuotaRetryMax = constants.DefaultQuotaRetryMax
	}

	s := &Scheduler{
		doer:          doer,
		monitor:       monitor,
		logger:        cfg.Logger,
		callLimit:     cfg.CallLimit,
		maxAttempts:   cfg.MaxAttempts,
		quotaRetryMax: cfg.QuotaRetryMax,
		stagger:       rate.NewLimiter(rate.Every(cfg.MinSendInterval), 1),
		queue:         list.New(),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.run()

	return s
}

// OnRequest assigns the hook invoked once per dispatched call.
func (s *Scheduler) OnRequest(hook canvas.RequestHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hook = hook
}

// Submit enqueues a call and blocks until it resolves or fails terminally.
func (s *Scheduler) Submit(ctx context.Context, req *canvas.Request) (*canvas.Response, error) {
	result := <-s.Enqueue(ctx, req)

	return result.Response, result.Err
}

// Enqueue admits a call into the queue and returns the channel its terminal
// result will be delivered on.
func (s *Scheduler) Enqueue(ctx context.Context, req *canvas.Request) <-chan Result {
	c := &call{
		ctx:  ctx,
		req:  req,
		done: make(chan Result, 1),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.fail(canvas.ErrSchedulerClosed)

		return c.done
	}

	s.queue.PushBack(c)
	s.cond.Signal()

	return c.done
}

// Close stops admission. Queued calls fail with ErrSchedulerClosed;
// in-flight calls run to completion.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true

	for elem := s.queue.Front(); elem != nil; elem = elem.Next() {
		elem.Value.(*call).fail(canvas.ErrSchedulerClosed)
	}

	s.queue.Init()
	s.cond.Broadcast()
}

// run is the single dispatcher loop. Keeping admission on one goroutine is
// what makes the stagger delay and the FIFO-with-retry-priority ordering
// hold across many in-flight requests.
func (s *Scheduler) run() {
	for {
		c, ok := s.next()
		if !ok {
			return
		}

		if c.ctx.Err() != nil {
			c.fail(c.ctx.Err())

			continue
		}

		err := s.monitor.AwaitCapacity(c.ctx)
		if err != nil {
			c.fail(err)

			continue
		}

		err = s.stagger.Wait(c.ctx)
		if err != nil {
			c.fail(err)

			continue
		}

		s.monitor.Consume(1)

		s.mu.Lock()
		s.inflight++
		s.mu.Unlock()

		go s.dispatch(c)
	}
}

// next blocks until a call can be admitted, or reports closure.
func (s *Scheduler) next() (*call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.closed && (s.queue.Len() == 0 || s.inflight >= s.callLimit) {
		s.cond.Wait()
	}

	if s.closed {
		return nil, false
	}

	elem := s.queue.Front()
	s.queue.Remove(elem)

	return elem.Value.(*call), true
}

// dispatch fires one attempt and routes the outcome.
func (s *Scheduler) dispatch(c *call) {
	defer s.release()

	c.attempts++
	s.notifyHook(c.req)

	resp, err := s.doer.Do(c.ctx, c.req)
	if err != nil {
		s.handleNetworkFailure(c, err)

		return
	}

	if resp.Remaining != nil {
		s.monitor.Observe(*resp.Remaining)
	}

	switch {
	case canvas.IsThrottle(resp.StatusCode, resp.Body):
		s.handleThrottle(c, resp)
	case resp.StatusCode >= http.StatusInternalServerError:
		s.handleServerError(c, resp)
	case resp.StatusCode >= http.StatusBadRequest:
		c.fail(canvas.NewAPIError(c.req.Method, s.doer.URLFor(c.req), resp.StatusCode, resp.Body))
	default:
		c.resolve(resp)
	}
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	s.cond.Signal()
}

// handleThrottle requeues a throttled call at the queue front and forces the
// monitor to zero so every pending call backs off until the next real
// observation.
func (s *Scheduler) handleThrottle(c *call, resp *canvas.Response) {
	s.monitor.Observe(0)

	c.quotaRetries++
	if c.quotaRetries >= s.quotaRetryMax {
		c.fail(canvas.NewAPIError(c.req.Method, s.doer.URLFor(c.req), resp.StatusCode, resp.Body))

		return
	}

	if s.logger != nil {
		s.logger.Warn("throttled, requeueing", map[string]interface{}{
			"method":  c.req.Method,
			"url":     s.doer.URLFor(c.req),
			"retries": c.quotaRetries,
		})
	}

	s.requeueFront(c)
}

func (s *Scheduler) handleNetworkFailure(c *call, err error) {
	if c.attempts >= s.maxAttempts {
		c.fail(fmt.Errorf("%w after %d attempts: %s %s: %w",
			canvas.ErrAttemptsExhausted, c.attempts, c.req.Method, s.doer.URLFor(c.req), err))

		return
	}

	if s.logger != nil {
		s.logger.Warn("transient failure, requeueing", map[string]interface{}{
			"method":  c.req.Method,
			"url":     s.doer.URLFor(c.req),
			"attempt": c.attempts,
			"error":   err.Error(),
		})
	}

	s.requeueFront(c)
}

func (s *Scheduler) handleServerError(c *call, resp *canvas.Response) {
	if c.attempts >= s.maxAttempts {
		c.fail(canvas.NewAPIError(c.req.Method, s.doer.URLFor(c.req), resp.StatusCode, resp.Body))

		return
	}

	s.requeueFront(c)
}

// requeueFront reinserts a call ahead of never-attempted calls.
func (s *Scheduler) requeueFront(c *call) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.fail(canvas.ErrSchedulerClosed)

		return
	}

	s.queue.PushFront(c)
	s.cond.Signal()
}

func (s *Scheduler) notifyHook(req *canvas.Request) {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(req.Method, s.doer.URLFor(req), req.Body)
	}
}
