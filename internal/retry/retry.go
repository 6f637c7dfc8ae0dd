// Package retry provides bounded retry with exponential backoff for remote calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/logging"
)

// Classifier reports whether an error should be retried.
type Classifier func(error) bool

// Policy retries a call while its classifier accepts the returned error.
//
// Thread Safety: a Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	classifier  Classifier
	logger      *slog.Logger
	sleep       func(context.Context, time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the maximum number of attempts, including the first call.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and maximum delay between attempts.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(p *Policy) {
		p.baseDelay = base
		p.maxDelay = maxDelay
	}
}

// WithClassifier replaces the default throttling classifier.
func WithClassifier(c Classifier) Option {
	return func(p *Policy) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSleep replaces the wait between attempts. Intended for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Policy) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New creates a Policy with:
// - Maximum 10 attempts (including initial attempt)
// - Exponential backoff starting with 100ms base delay
// - Maximum backoff delay of 30 seconds
// - Retries on throttling error codes only
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: 10,
		baseDelay:   100 * time.Millisecond,
		maxDelay:    30 * time.Second,
		classifier:  IsThrottle,
		logger:      logging.Discard(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the maximum number of attempts.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Delay returns the wait before the given retry attempt (1-based),
// implementing exponential backoff with ±25% jitter capped at the maximum delay.
func (p *Policy) Delay(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^(attempt-1)
	backoff := math.Pow(2, float64(attempt-1)) * float64(p.baseDelay)
	if backoff >= float64(p.maxDelay) {
		return p.maxDelay
	}
	delay := time.Duration(backoff)

	jitterRange := int64(float64(delay) * 0.25)
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(2*jitterRange) - jitterRange) //nolint:gosec // jitter does not need crypto rand
	}

	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Do calls fn until it succeeds, returns an error the classifier rejects,
// or the attempts run out. A rejected error is returned unchanged. On
// exhaustion the last error is returned wrapped with the operation name and
// ErrRetriesExhausted.
func (p *Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !p.classifier(err) {
			return err
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		p.logger.Debug("Retrying throttled call",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		if serr := p.sleep(ctx, delay); serr != nil {
			return deperrors.NewError(op, fmt.Errorf("retry interrupted: %w", serr)).
				WithCode(deperrors.CodeRetriesExhausted)
		}
	}

	return deperrors.NewError(op, fmt.Errorf("%w after %d attempts: %w",
		deperrors.ErrRetriesExhausted, p.maxAttempts, deperrors.NewTransientError(op, lastErr))).
		WithCode(deperrors.CodeRetriesExhausted)
}

// IsThrottle reports whether err is a rate-limit response from an AWS service.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling",
			"ThrottlingException",
			"ThrottledException",
			"RequestLimitExceeded",
			"RequestThrottled",
			"TooManyRequestsException",
			"SlowDown",
			"ProvisionedThroughputExceededException":
			return true
		}
	}
	return false
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
