// Package httputil provides HTTP utilities for the archive client.
//
// # Retry
//
// [Retry] wraps an operation with retry for transient failures. Only errors
// wrapped in [RetryableError] are retried; everything else is returned
// immediately:
//
//   - Network errors (connection refused, reset, DNS)
//   - 5xx server errors
//
// The delay doubles after each failed attempt:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return fetchIndex(ctx)
//	})
//
// An attempts value of 1 runs the operation once, which is what debfetch
// does unless retries are configured.
package httputil
