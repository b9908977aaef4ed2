package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openinsight-kr/market-pulse/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func TestWithRetryRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastOpts())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := &RetryableError{Err: errors.New("bad payload"), Retryable: false}

	err := WithRetry(context.Background(), func() error {
		calls++
		return permanent
	}, fastOpts())

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors must fail on the first attempt")

	var retryableErr *RetryableError
	assert.True(t, errors.As(err, &retryableErr))
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return errors.New("still down")
	}, fastOpts())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetries))
	assert.Equal(t, 3, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("boom"), true},
		{"upstream status", ErrUpstreamStatus, true},
		{"marked retryable", &RetryableError{Err: errors.New("x"), Retryable: true}, true},
		{"marked non-retryable", &RetryableError{Err: errors.New("x"), Retryable: false}, false},
		{"wrapped non-retryable", &RetryableError{Err: ErrUpstreamMalformed, Retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
