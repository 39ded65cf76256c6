package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredentials means the reasoning service has no API key.
	ErrMissingCredentials = errors.New("reasoning service credentials missing")

	// ErrEmptyResponse means the reasoning service answered with no content.
	ErrEmptyResponse = errors.New("reasoning service returned an empty response")

	// ErrServiceUnavailable means calls are being rejected locally, for
	// example by an open circuit breaker.
	ErrServiceUnavailable = errors.New("reasoning service temporarily unavailable")
)

// ServiceError is a non-success HTTP answer from an external service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("service error: %d %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, &ServiceError{}) match any status.
func (e *ServiceError) Is(target error) bool {
	_, ok := target.(*ServiceError)
	return ok
}
