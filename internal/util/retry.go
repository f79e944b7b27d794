// Package util provides shared utility functions for bvfs.
package util

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// CatalogRetryOptions returns retry options for transient catalog write
// contention: a job-claim commit, a batch-refresh job-selection query, and
// scratch-table creation can all race a concurrent writer on
// sqlite/mysql/postgres and see a transient lock/serialization error.
// Exponential backoff from 100ms, capped at 300ms, keeps retries inside
// typical request latency budgets: three attempts wait 100ms, then 200ms.
func CatalogRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(300 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransientCatalogError),
		retry.Context(ctx),
	}
}

// DefaultRetryOptions returns sensible defaults for retry operations that
// are not catalog-lock specific.
func DefaultRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(1 * time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	}
}

// Retry executes fn with retry logic.
// If all attempts fail, the returned error is retry-go's retry.Error,
// which lists the error of every attempt.
func Retry(ctx context.Context, fn func() error, opts ...retry.Option) error {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.Do(fn, opts...)
}

// RetryWithResult executes fn with retry logic and returns the result.
func RetryWithResult[T any](ctx context.Context, fn func() (T, error), opts ...retry.Option) (T, error) {
	if len(opts) == 0 {
		opts = DefaultRetryOptions(ctx)
	}
	return retry.DoWithData(fn, opts...)
}

// IsTransientCatalogError reports whether err looks like a retryable
// catalog contention error across the dialects bvfs supports: sqlite's
// "database is locked", mysql's deadlock/lock-wait-timeout, and
// postgres's serialization_failure class.
func IsTransientCatalogError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"):
		return true
	case strings.Contains(msg, "deadlock found"):
		return true
	case strings.Contains(msg, "lock wait timeout"):
		return true
	case strings.Contains(msg, "could not serialize access"):
		return true
	default:
		return false
	}
}
