package retry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loykin/apicall/internal/common"
)

// recordingSleep captures requested delays without blocking.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestExecutor(p Policy) (*Executor, *recordingSleep, *bytes.Buffer) {
	var buf bytes.Buffer
	rs := &recordingSleep{}
	e := NewExecutor(p, common.NewLineLogger(&buf, common.LogLevelDebug))
	e.Sleep = rs.sleep
	return e, rs, &buf
}

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string   { return e.msg }
func (e *permanentErr) Retryable() bool { return false }

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", p.InitialDelay)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2", p.Multiplier)
	}
	if p.AttemptTimeout != 0 {
		t.Errorf("AttemptTimeout = %v, want 0", p.AttemptTimeout)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"zero attempts", Policy{MaxAttempts: 0}, true},
		{"negative delay", Policy{MaxAttempts: 1, InitialDelay: -1}, true},
		{"multiplier one", Policy{MaxAttempts: 1, Multiplier: 1}, true},
		{"multiplier unset", Policy{MaxAttempts: 2}, false},
		{"negative timeout", Policy{MaxAttempts: 1, AttemptTimeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolicy_TotalBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 4, InitialDelay: 10 * time.Millisecond, Multiplier: 2}
	// 10 * (2^3 - 1) = 70ms
	if got := p.TotalBackoff(); got != 70*time.Millisecond {
		t.Errorf("TotalBackoff = %v, want 70ms", got)
	}
	if got := (Policy{MaxAttempts: 1, InitialDelay: time.Second}).TotalBackoff(); got != 0 {
		t.Errorf("single attempt backoff = %v, want 0", got)
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	e, rs, _ := newTestExecutor(Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2})
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rs.delays) != 0 {
		t.Errorf("no sleep expected, got %v", rs.delays)
	}
}

func TestDo_FailsNMinusOneThenSucceeds(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		e, rs, _ := newTestExecutor(Policy{MaxAttempts: n, InitialDelay: 10 * time.Millisecond, Multiplier: 2})
		calls := 0
		err := e.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < n {
				return errors.New("connection refused")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if calls != n {
			t.Errorf("n=%d: calls = %d", n, calls)
		}
		if len(rs.delays) != n-1 {
			t.Errorf("n=%d: sleeps = %d", n, len(rs.delays))
		}
	}
}

func TestDo_AlwaysFailsReturnsLastError(t *testing.T) {
	e, rs, buf := newTestExecutor(Policy{MaxAttempts: 4, InitialDelay: 10 * time.Millisecond, Multiplier: 2})
	var last error
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		last = errors.New("attempt failure")
		return last
	})
	if err != last {
		t.Fatalf("expected the operation's own error unchanged, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(rs.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rs.delays, want)
	}
	for i := range want {
		if rs.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rs.delays[i], want[i])
		}
	}
	out := buf.String()
	for _, line := range []string{
		"[WARNING] Attempt 1 failed. Retrying in 10ms",
		"[WARNING] Attempt 2 failed. Retrying in 20ms",
		"[WARNING] Attempt 3 failed. Retrying in 40ms",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("missing log line %q in:\n%s", line, out)
		}
	}
	if strings.Contains(out, "Attempt 4 failed") {
		t.Errorf("last attempt must not log a retry warning:\n%s", out)
	}
}

func TestDo_DelayResetsBetweenCalls(t *testing.T) {
	e, rs, _ := newTestExecutor(Policy{MaxAttempts: 3, InitialDelay: 5 * time.Millisecond, Multiplier: 2})
	fail := func(context.Context) error { return errors.New("x") }
	_ = e.Do(context.Background(), fail)
	_ = e.Do(context.Background(), fail)
	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 5 * time.Millisecond, 10 * time.Millisecond}
	if len(rs.delays) != len(want) {
		t.Fatalf("delays = %v", rs.delays)
	}
	for i := range want {
		if rs.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rs.delays[i], want[i])
		}
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	e, rs, _ := newTestExecutor(Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2})
	perm := &permanentErr{msg: "bad method"}
	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return perm
	})
	if err != perm {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 || len(rs.delays) != 0 {
		t.Errorf("calls=%d sleeps=%d, want 1/0", calls, len(rs.delays))
	}
}

func TestDo_InvalidPolicy(t *testing.T) {
	e, _, _ := newTestExecutor(Policy{MaxAttempts: 0})
	called := false
	err := e.Do(context.Background(), func(context.Context) error { called = true; return nil })
	if err == nil || called {
		t.Fatalf("expected validation error without calling op, err=%v called=%v", err, called)
	}
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	e := NewExecutor(Policy{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 2}, common.NewLineLogger(&bytes.Buffer{}, common.LogLevelError))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- e.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_AttemptTimeout(t *testing.T) {
	e, _, _ := newTestExecutor(Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2, AttemptTimeout: 10 * time.Millisecond})
	calls := 0
	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Error("attempt context should carry a deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 2 {
		t.Errorf("timed-out attempts should be retried, calls = %d", calls)
	}
}

func TestDo_RealSleepElapsed(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: 20 * time.Millisecond, Multiplier: 2}
	e := NewExecutor(p, common.NewLineLogger(&bytes.Buffer{}, common.LogLevelError))
	start := time.Now()
	_ = e.Do(context.Background(), func(context.Context) error { return errors.New("x") })
	elapsed := time.Since(start)
	// 20 * (2^2 - 1) = 60ms
	if elapsed < 60*time.Millisecond {
		t.Errorf("elapsed %v shorter than total backoff 60ms", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("elapsed %v far beyond total backoff", elapsed)
	}
}

func TestExecute_ReturnsValue(t *testing.T) {
	e, _, _ := newTestExecutor(Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2})
	calls := 0
	v, err := Execute(context.Background(), e, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "partial", errors.New("flaky")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("Execute = %q, %v", v, err)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if !IsRetryable(errors.New("connection reset")) {
		t.Error("plain errors are retryable")
	}
	if IsRetryable(&permanentErr{"x"}) {
		t.Error("permanent error reported retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation is not retryable")
	}
}
