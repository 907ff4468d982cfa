// Package provider implements the transport for the upstream GraphQL API.
//
// This package contains:
//   - Provider interface: one page fetch against a remote endpoint
//   - HTTPProvider: GraphQL over HTTP implementation
//   - ProviderMonitor: latency and throttle tracking
//   - Error classification used by the retry executor and metrics
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
)

// Provider fetches a single page of a paginated query.
type Provider interface {
	// GetName returns provider identifier (e.g., "anilist")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// FetchPage performs one attempt. It never retries.
	FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Requests      int           `json:"requests"`
	Failures      int           `json:"failures"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}

// ErrorClass groups failed attempts for logging and metrics.
type ErrorClass string

const (
	ClassStatus    ErrorClass = "status"    // upstream answered with a non-200 status
	ClassTransport ErrorClass = "transport" // request never produced a response
	ClassDecode    ErrorClass = "decode"    // 200 response that is not a usable page
)

// StatusError is returned for any response other than 200 OK.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// DecodeError wraps a malformed or incomplete response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps an attempt error to its class.
func Classify(err error) ErrorClass {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ClassStatus
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ClassDecode
	}
	return ClassTransport
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == 429
}
