package provider

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/theimaginaryfoundation/chat-recap/recap/metrics"
)

// RetryPolicy is the single retry configuration shared by every invocation.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	JitterMax  time.Duration
}

// DefaultRetryPolicy allows 3 retries after the first attempt, 2s base delay, up to 1s jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		JitterMax:  time.Second,
	}
}

// Backoff returns the deterministic part of the delay after a failed attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Attempt records one call to the backend. Attempts are only ever appended.
type Attempt struct {
	Number    int
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Class     ErrorClass
}

// Succeeded reports whether the attempt produced a response.
func (a Attempt) Succeeded() bool { return a.Err == nil }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Invoker wraps a single backend call with bounded retries and exponential backoff.
type Invoker struct {
	Variant string
	Policy  RetryPolicy
	Logger  *slog.Logger

	// Sleep and Jitter default to a timer wait and a uniform draw in [0, JitterMax).
	Sleep  SleepFunc
	Jitter func(max time.Duration) time.Duration

	// OnAttempt, if set, observes every attempt as soon as it resolves.
	OnAttempt func(Attempt)
}

// Do runs fn until it succeeds, fails fatally, or the policy is exhausted.
// On failure the returned error is an *InvokeError wrapping the last attempt's error.
func (inv Invoker) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, []Attempt, error) {
	logger := inv.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := inv.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	jitter := inv.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	maxRetries := inv.Policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := make([]Attempt, 0, maxRetries+1)
	var lastErr error
	lastClass := ClassTransient

	for attempt := 0; attempt <= maxRetries; attempt++ {
		a := Attempt{Number: attempt + 1, StartedAt: time.Now()}
		out, err := fn(ctx)
		a.Duration = time.Since(a.StartedAt)

		if err == nil {
			attempts = append(attempts, a)
			inv.observe(a)
			metrics.InvocationAttempts.WithLabelValues(inv.Variant, "success").Inc()
			return out, attempts, nil
		}

		a.Err = err
		a.Class = Classify(err)
		if ctx.Err() != nil {
			a.Class = ClassCanceled
		}
		attempts = append(attempts, a)
		inv.observe(a)
		lastErr, lastClass = err, a.Class

		if a.Class.Fatal() {
			metrics.InvocationAttempts.WithLabelValues(inv.Variant, "fatal").Inc()
			logger.Error("generation failed, not retrying",
				"variant", inv.Variant, "attempt", a.Number, "class", a.Class.String(), "err", err)
			break
		}
		metrics.InvocationAttempts.WithLabelValues(inv.Variant, "retryable").Inc()

		if attempt == maxRetries {
			break
		}

		delay := inv.Policy.Backoff(attempt)
		if inv.Policy.JitterMax > 0 {
			delay += jitter(inv.Policy.JitterMax)
		}
		logger.Warn("generation attempt failed, retrying",
			"variant", inv.Variant, "attempt", a.Number, "class", a.Class.String(), "delay", delay.Round(time.Millisecond), "err", err)

		if err := sleep(ctx, delay); err != nil {
			lastErr, lastClass = err, ClassCanceled
			break
		}
	}

	metrics.InvocationFailures.WithLabelValues(inv.Variant, lastClass.String()).Inc()
	return "", attempts, &InvokeError{
		Variant:  inv.Variant,
		Class:    lastClass,
		Attempts: len(attempts),
		Err:      lastErr,
	}
}

func (inv Invoker) observe(a Attempt) {
	if inv.OnAttempt != nil {
		inv.OnAttempt(a)
	}
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

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
