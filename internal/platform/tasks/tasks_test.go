package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

var fastPolicy = RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Retries: MaxRetries}

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string   { return "provider error" }
func (e retryableErr) Retryable() bool { return e.retry }

// =============================================================================
// Retry
// =============================================================================

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("two retries then give up", func(t *testing.T) {
		var calls int
		err := RetryWithPolicy(ctx, fastPolicy, "send_email", func(context.Context) error {
			calls++
			return errors.New("connection reset")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)

		var te *TaskError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "send_email", te.Task)
	})

	t.Run("succeeds on second attempt", func(t *testing.T) {
		var calls int
		err := RetryWithPolicy(ctx, fastPolicy, "issue_invoice", func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("timeout")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("domain client errors are not retried", func(t *testing.T) {
		var calls int
		err := RetryWithPolicy(ctx, fastPolicy, "issue_invoice", func(context.Context) error {
			calls++
			return dErrors.New(dErrors.CodeValidation, "missing client")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("non retryable provider error", func(t *testing.T) {
		var calls int
		_ = RetryWithPolicy(ctx, fastPolicy, "bccr", func(context.Context) error {
			calls++
			return retryableErr{retry: false}
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("permanent", func(t *testing.T) {
		var calls int
		err := RetryWithPolicy(ctx, fastPolicy, "bccr", func(context.Context) error {
			calls++
			return Permanent(errors.New("bad account"))
		})
		assert.ErrorContains(t, err, "bad account")
		assert.Equal(t, 1, calls)
	})
}

// =============================================================================
// Dispatcher
// =============================================================================

type DispatcherSuite struct {
	suite.Suite
	d *Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.d = NewDispatcher(WithWorkers(2), WithQueueSize(4), WithRetryPolicy(fastPolicy))
}

func (s *DispatcherSuite) TestRunsSubmittedTasks() {
	s.d.Start(context.Background())

	var wg sync.WaitGroup
	var ran atomic.Int32
	var seenRequestID atomic.Value
	wg.Add(3)
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithRequestID(context.Background(), "req-42")
		s.Require().NoError(s.d.Submit(ctx, "send_email", func(ctx context.Context) error {
			defer wg.Done()
			seenRequestID.Store(requestcontext.RequestID(ctx))
			ran.Add(1)
			return nil
		}))
	}
	wg.Wait()
	s.Equal(int32(3), ran.Load())
	s.Equal("req-42", seenRequestID.Load())
	s.NoError(s.d.Stop(context.Background()))
}

func (s *DispatcherSuite) TestTaskContextOutlivesRequest() {
	s.d.Start(context.Background())
	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s.Require().NoError(s.d.Submit(reqCtx, "issue_invoice", func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	}))
	cancel()
	s.NoError(<-done)
	s.NoError(s.d.Stop(context.Background()))
}

func (s *DispatcherSuite) TestQueueFull() {
	// not started: nothing drains the queue
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.d.Submit(context.Background(), "t", func(context.Context) error { return nil }))
	}
	err := s.d.Submit(context.Background(), "t", func(context.Context) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *DispatcherSuite) TestStopDrainsAndRejects() {
	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.d.Submit(context.Background(), "t", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	s.d.Start(context.Background())
	s.Require().NoError(s.d.Stop(context.Background()))
	s.Equal(int32(3), ran.Load())

	err := s.d.Submit(context.Background(), "t", func(context.Context) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *DispatcherSuite) TestPanicIsContained() {
	s.d.Start(context.Background())
	done := make(chan struct{})
	s.Require().NoError(s.d.Submit(context.Background(), "boom", func(context.Context) error {
		defer close(done)
		panic("nil pointer")
	}))
	<-done
	s.NoError(s.d.Stop(context.Background()))
}

func TestInline(t *testing.T) {
	var calls int
	err := Inline{}.Submit(context.Background(), "t", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// =============================================================================
// Scheduler
// =============================================================================

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register(Job{Name: "refresh_obligations", Interval: time.Hour, Run: noop}))
	require.NoError(t, s.Register(Job{Name: "relay_audit_outbox", Interval: time.Second, Run: noop}))
	assert.True(t, dErrors.HasCode(s.Register(Job{Name: "relay_audit_outbox", Run: noop}), dErrors.CodeConflict))
	assert.True(t, dErrors.HasCode(s.Register(Job{Name: "x"}), dErrors.CodeInvariantViolation))
	assert.Equal(t, []string{"refresh_obligations", "relay_audit_outbox"}, s.Jobs())
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	var ran int
	require.NoError(t, s.Register(Job{Name: "refresh_obligations", Run: func(context.Context) error {
		ran++
		return nil
	}}))

	require.NoError(t, s.RunOnce(context.Background(), "refresh_obligations"))
	assert.Equal(t, 1, ran)

	err := s.RunOnce(context.Background(), "unknown")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := NewScheduler()
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register(Job{Name: "slow", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	go func() { _ = s.RunOnce(context.Background(), "slow") }()
	<-started
	err := s.RunOnce(context.Background(), "slow")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	close(release)
}

func TestScheduler_RunTicks(t *testing.T) {
	s := NewScheduler()
	var ticks atomic.Int32
	require.NoError(t, s.Register(Job{Name: "relay_audit_outbox", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		ticks.Add(1)
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
