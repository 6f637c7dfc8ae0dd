package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

func noSleep(_ context.Context, _ time.Duration) error {
	return nil
}

func throttle() error {
	return &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
}

func TestPolicy_Defaults(t *testing.T) {
	p := New()
	assert.Equal(t, 10, p.MaxAttempts())

	// Capped at 30 seconds even for high attempts.
	assert.LessOrEqual(t, p.Delay(20), 30*time.Second)

	// Delays grow exponentially; jitter never overlaps neighbouring attempts.
	d1, d2, d3 := p.Delay(1), p.Delay(2), p.Delay(3)
	assert.Greater(t, d2, d1)
	assert.Greater(t, d3, d2)
}

func TestPolicy_Do(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		check     func(t *testing.T, err error)
	}{
		{
			name:      "success first try",
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:      "throttled then success",
			failures:  []error{throttle(), throttle()},
			wantCalls: 3,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:      "non-retryable returns immediately",
			failures:  []error{&smithy.GenericAPIError{Code: "ValidationError", Message: "bad template"}},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var apiErr smithy.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "ValidationError", apiErr.ErrorCode())
				assert.NotErrorIs(t, err, deperrors.ErrRetriesExhausted)
			},
		},
		{
			name:      "exhausted",
			failures:  []error{throttle(), throttle(), throttle(), throttle()},
			wantCalls: 3,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.ErrorIs(t, err, deperrors.ErrRetriesExhausted)
				assert.True(t, deperrors.IsThrottled(err))
				assert.Contains(t, err.Error(), "deployer.validate-template")
				assert.Equal(t, deperrors.CodeRetriesExhausted, deperrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(WithMaxAttempts(3), WithSleep(noSleep))

			calls := 0
			err := p.Do(context.Background(), "validate-template", func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			tt.check(t, err)
		})
	}
}

func TestPolicy_DoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(WithBackoff(time.Hour, time.Hour))
	calls := 0
	err := p.Do(ctx, "validate-template", func(context.Context) error {
		calls++
		return throttle()
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_CustomClassifier(t *testing.T) {
	sentinel := errors.New("flaky")
	p := New(
		WithMaxAttempts(5),
		WithSleep(noSleep),
		WithClassifier(func(err error) bool { return errors.Is(err, sentinel) }),
	)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 4 {
			return fmt.Errorf("wrapped: %w", sentinel)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestIsThrottle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttling", &smithy.GenericAPIError{Code: "Throttling"}, true},
		{"throttling exception", &smithy.GenericAPIError{Code: "ThrottlingException"}, true},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, true},
		{"request limit", &smithy.GenericAPIError{Code: "RequestLimitExceeded"}, true},
		{"wrapped", fmt.Errorf("call: %w", &smithy.GenericAPIError{Code: "TooManyRequestsException"}), true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsThrottle(tt.err))
		})
	}
}
