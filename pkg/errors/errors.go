package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNilRoot indicates that a search was started without a root state
	ErrNilRoot = errors.New("root state is nil")

	// ErrInvalidConfig indicates that a search configuration is invalid
	ErrInvalidConfig = errors.New("invalid search configuration")

	// ErrWorkerFailed indicates that a parallel worker failed mid-search
	ErrWorkerFailed = errors.New("search worker failed")

	// ErrContractViolation indicates that a State implementation broke the
	// successor contract (e.g. inconsistent or non-terminating successors)
	ErrContractViolation = errors.New("state contract violation")

	// ErrProblemNotFound indicates that a named problem is not registered
	ErrProblemNotFound = errors.New("problem not found")

	// ErrLimiterBusy indicates that the concurrency limiter rejected work
	ErrLimiterBusy = errors.New("concurrency limit reached")

	// ErrNotConnected indicates that the runner is not connected to NATS
	ErrNotConnected = errors.New("not connected to NATS")

	// ErrStoreUnavailable indicates that the result store rejected an operation
	ErrStoreUnavailable = errors.New("result store unavailable")
)

// Error represents a structured engine error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new engine error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsWorkerFailure checks if an error came from a failed parallel worker
func IsWorkerFailure(err error) bool {
	return errors.Is(err, ErrWorkerFailed)
}

// IsContractViolation checks if an error is a state contract violation
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}
