// Package domain contains the core domain models and types.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases.
var (
	// ErrRateLimited indicates the grouping key has exhausted its window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrDeliveryTimeout indicates the messaging provider did not respond in time.
	ErrDeliveryTimeout = errors.New("delivery timeout")

	// ErrTransport indicates the provider could not be reached.
	ErrTransport = errors.New("delivery transport failure")

	// ErrProviderRejected indicates the provider answered but refused the message.
	ErrProviderRejected = errors.New("provider rejected message")

	// ErrEmptyIdentity indicates the identity probe returned no usable identity.
	ErrEmptyIdentity = errors.New("provider returned empty identity")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FailureKind distinguishes the two ways a delivery can fail.
// Both surface as the same outcome; the kind only changes what gets logged.
type FailureKind string

const (
	KindTransport FailureKind = "transport"
	KindProvider  FailureKind = "provider"
)

// DeliveryError wraps a delivery failure with the operation that failed.
type DeliveryError struct {
	// Op is the operation that failed.
	Op string

	// Kind classifies the failure.
	Kind FailureKind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TransportError wraps err as a transport-level failure.
func TransportError(op string, err error) *DeliveryError {
	return &DeliveryError{Op: op, Kind: KindTransport, Err: err}
}

// ProviderError wraps err as a provider rejection.
func ProviderError(op string, err error) *DeliveryError {
	return &DeliveryError{Op: op, Kind: KindProvider, Err: err}
}

// KindOf reports the failure kind of err. Errors that were never classified
// are treated as transport failures.
func KindOf(err error) FailureKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransport
}
