package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/apicall/internal/common"
	"github.com/loykin/apicall/internal/constants"
)

// Policy bounds how often and how patiently an operation is retried.
//
// The delay grows by Multiplier after every failed attempt with no jitter and no
// upper bound, so a large MaxAttempts can produce very long waits.
type Policy struct {
	MaxAttempts  int           // total attempts, at least 1
	InitialDelay time.Duration // wait after the first failure
	Multiplier   float64       // growth factor, greater than 1
	// AttemptTimeout bounds a single attempt when positive. Zero means no timeout.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns 3 attempts starting at one second and doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  constants.DefaultMaxAttempts,
		InitialDelay: constants.DefaultInitialDelay,
		Multiplier:   constants.DefaultMultiplier,
	}
}

// Validate reports policies that cannot be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("retry: initial delay must be >= 0, got %s", p.InitialDelay)
	}
	if p.Multiplier != 0 && p.Multiplier <= 1 {
		return fmt.Errorf("retry: multiplier must be > 1, got %g", p.Multiplier)
	}
	if p.AttemptTimeout < 0 {
		return fmt.Errorf("retry: attempt timeout must be >= 0, got %s", p.AttemptTimeout)
	}
	return nil
}

// TotalBackoff is the sum of all waits when every attempt fails:
// InitialDelay * (m^(n-1) - 1) / (m - 1), which is InitialDelay * (2^(n-1) - 1) for m = 2.
func (p Policy) TotalBackoff() time.Duration {
	var total time.Duration
	delay := p.InitialDelay
	for i := 1; i < p.MaxAttempts; i++ {
		total += delay
		delay = time.Duration(float64(delay) * p.multiplier())
	}
	return total
}

func (p Policy) multiplier() float64 {
	if p.Multiplier <= 1 {
		return constants.DefaultMultiplier
	}
	return p.Multiplier
}

// Operation is one full attempt. It must return a non-nil error on any failure.
type Operation func(ctx context.Context) error

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations under a Policy. Delay state lives inside a single Do
// call, so one Executor may serve consecutive calls; concurrent callers should
// still use their own Executor.
type Executor struct {
	Policy Policy
	Logger *common.Logger
	// Sleep defaults to a context-aware timer; tests replace it.
	Sleep SleepFunc
}

// NewExecutor creates an executor for policy. A nil logger uses the default logger.
func NewExecutor(policy Policy, logger *common.Logger) *Executor {
	return &Executor{
		Policy: policy,
		Logger: logger,
		Sleep:  sleepContext,
	}
}

// Retryable is implemented by errors that know whether another attempt can help.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports false only for errors that declare themselves non-retryable
// and for context cancellation; every other failure is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// Do runs op until it succeeds or the policy is exhausted. The error of the last
// attempt is returned as is. A cancelled ctx interrupts the backoff wait and
// returns ctx.Err().
func (e *Executor) Do(ctx context.Context, op Operation) error {
	if err := e.Policy.Validate(); err != nil {
		return err
	}
	logger := common.OrDefault(e.Logger).WithComponent("retry")
	sleep := e.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := e.Policy.InitialDelay
	for attempt := 0; attempt < e.Policy.MaxAttempts; attempt++ {
		err := e.attempt(ctx, op)
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		if attempt == e.Policy.MaxAttempts-1 || !IsRetryable(err) {
			return err
		}

		logger.Warn(fmt.Sprintf("Attempt %d failed. Retrying in %dms", attempt+1, delay.Milliseconds()),
			"attempt", attempt+1,
			"max_attempts", e.Policy.MaxAttempts,
			"retry_delay", delay,
			"error", err)

		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
		delay = time.Duration(float64(delay) * e.Policy.multiplier())
	}
	// unreachable: MaxAttempts >= 1 is validated above
	return nil
}

func (e *Executor) attempt(ctx context.Context, op Operation) error {
	if e.Policy.AttemptTimeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, e.Policy.AttemptTimeout)
	defer cancel()
	return op(actx)
}

// Execute is Do for operations that produce a value.
func Execute[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
