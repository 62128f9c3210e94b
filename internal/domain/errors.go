package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var (
	// ErrNoDataForRange is returned when a holding has no price history for the requested window
	ErrNoDataForRange = errors.New("no data for range")
	// ErrNoCacheAvailable is returned when a refresh failed and nothing was cached before
	ErrNoCacheAvailable = errors.New("no cached value available")
	ErrInvalidRange     = errors.New("invalid range")
	ErrTickerNotFound   = errors.New("ticker not found")
	ErrInvalidHolding   = errors.New("invalid holding")
)

// ErrorKind classifies provider failures
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindHTTP        ErrorKind = "upstream_http_error"
	KindUnavailable ErrorKind = "upstream_unavailable"
	KindMalformed   ErrorKind = "malformed_response"
	KindNoData      ErrorKind = "no_data_for_range"
	KindNoCache     ErrorKind = "no_cache_available"
	KindInvalid     ErrorKind = "invalid_request"
	KindNotFound    ErrorKind = "not_found"
	KindInternal    ErrorKind = "internal"
)

// ProviderError is a classified failure from an external data provider
type ProviderError struct {
	Err      error
	Kind     ErrorKind
	Provider string
	Op       string
	Status   int
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Kind)
	if e.Kind == KindHTTP && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindUnavailable:
		return true
	case KindHTTP:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

// NewProviderError wraps err with a kind inferred from it
func NewProviderError(provider, op string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: provider, Op: op, Kind: ClassifyError(err), Err: err}
}

// NewHTTPError builds a provider error for a non-2xx upstream response
func NewHTTPError(provider, op string, status int, body string) *ProviderError {
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &ProviderError{Provider: provider, Op: op, Kind: KindHTTP, Status: status, Err: err}
}

// ClassifyError maps an error to its kind.
// Unknown errors are reported as KindInternal.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	switch {
	case errors.Is(err, ErrNoDataForRange):
		return KindNoData
	case errors.Is(err, ErrNoCacheAvailable):
		return KindNoCache
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidHolding):
		return KindInvalid
	case errors.Is(err, ErrTickerNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindUnavailable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindUnavailable
	}

	return KindInternal
}

// IsRetryable reports whether err is a transient failure
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	switch ClassifyError(err) {
	case KindTimeout, KindUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps an error to the status the HTTP layer should answer with
func HTTPStatus(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind == KindHTTP {
		if pe.Status >= 400 && pe.Status < 600 {
			return pe.Status
		}
		return http.StatusBadGateway
	}

	switch ClassifyError(err) {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnavailable, KindNoCache:
		return http.StatusServiceUnavailable
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound, KindNoData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
