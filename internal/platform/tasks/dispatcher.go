package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

// Func is a unit of background work.
type Func func(ctx context.Context) error

// Submitter queues one-off background work.
type Submitter interface {
	Submit(ctx context.Context, name string, fn Func) error
}

type task struct {
	name      string
	fn        Func
	requestID string
}

// Dispatcher is a bounded worker pool. Each task runs under Retry with a
// fresh context carrying only the originating request ID, so it outlives
// the request and runs without the requester's database role.
type Dispatcher struct {
	queue   chan task
	workers int
	policy  RetryPolicy
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan task, n)
		}
	}
}

func WithRetryPolicy(p RetryPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		queue:   make(chan task, 256),
		workers: 4,
		policy:  DefaultRetryPolicy,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Tasks run with contexts derived from ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

// Submit queues fn. It fails fast when the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Submit(ctx context.Context, name string, fn Func) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return dErrors.New(dErrors.CodeUnavailable, "task dispatcher is stopped")
	}
	select {
	case d.queue <- task{name: name, fn: fn, requestID: requestcontext.RequestID(ctx)}:
		d.metrics.queueDepth(len(d.queue))
		return nil
	default:
		return dErrors.New(dErrors.CodeUnavailable, "task queue is full")
	}
}

// Stop refuses new tasks, lets queued tasks finish and waits for the workers
// or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if d.cancel != nil {
			d.cancel()
		}
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for t := range d.queue {
		d.metrics.queueDepth(len(d.queue))
		d.run(ctx, t)
	}
}

func (d *Dispatcher) run(ctx context.Context, t task) {
	start := time.Now()
	taskCtx := requestcontext.WithRequestID(ctx, t.requestID)
	err := safeRun(taskCtx, t.name, func(ctx context.Context) error {
		return RetryWithPolicy(ctx, d.policy, t.name, t.fn)
	})
	d.metrics.observe(t.name, start, err)
	if err != nil {
		d.logger.ErrorContext(taskCtx, "background task failed",
			"task", t.name,
			"request_id", t.requestID,
			"error", err,
		)
		return
	}
	d.logger.DebugContext(taskCtx, "background task completed", "task", t.name, "duration_ms", time.Since(start).Milliseconds())
}

func safeRun(ctx context.Context, name string, fn Func) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = dErrors.Newf(dErrors.CodeInternal, "task %s panicked: %v", name, rec)
		}
	}()
	return fn(ctx)
}

// Inline runs submitted work synchronously under Retry. Used by the CLI and tests.
type Inline struct {
	Policy RetryPolicy
}

func (i Inline) Submit(ctx context.Context, name string, fn Func) error {
	p := i.Policy
	if p == (RetryPolicy{}) {
		p = RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Retries: MaxRetries}
	}
	return RetryWithPolicy(ctx, p, name, fn)
}
