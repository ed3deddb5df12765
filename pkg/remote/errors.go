// Package remote wraps calls to the hosted model services: client
// construction, error classification and bounded retries.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go/v2"
)

// Error is a failure talking to a remote model service.
type Error struct {
	Op         string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether err is worth retrying: timeouts, network
// failures, throttling and server-side errors.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if code := StatusCode(err); code != 0 {
		return code == http.StatusRequestTimeout ||
			code == http.StatusTooManyRequests ||
			code >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// StatusCode extracts the HTTP status of a failed API call, or 0.
func StatusCode(err error) int {
	var re *Error
	if errors.As(err, &re) && re.StatusCode != 0 {
		return re.StatusCode
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}

	return 0
}

// StatusError is returned by plain HTTP clients for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
