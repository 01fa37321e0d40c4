package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// RetryPolicy lists the waits before each retry. The number of attempts is one more than the longest list
// that applies to the failure seen.
type RetryPolicy struct {
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

// DefaultRetryPolicy waits out rate limits for over a minute and retries server errors sooner.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		ServerErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
	}
}

// NoRetry makes exactly one attempt.
func NoRetry() RetryPolicy { return RetryPolicy{} }

// CallWithRetry runs call until it succeeds, fails with an error that is not retryable, or runs out of
// waits. Waits are cut short when ctx is done.
func CallWithRetry[T any](ctx context.Context, policy RetryPolicy, call func(context.Context) (T, error)) (T, error) {
	rateLimited, serverErrors := 0, 0
	for {
		res, err := call(ctx)
		if err == nil {
			return res, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && rateLimited < len(policy.RateLimitWaits):
			wait = policy.RateLimitWaits[rateLimited]
			rateLimited++
		case isServerError(err) && serverErrors < len(policy.ServerErrorWaits):
			wait = policy.ServerErrorWaits[serverErrors]
			serverErrors++
		default:
			return res, err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return res, err
		case <-t.C:
		}
	}
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

func isServerError(err error) bool {
	return statusCode(err) >= http.StatusInternalServerError
}
