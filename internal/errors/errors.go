package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("resource conflict")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation error
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns the MultiError when it holds errors, nil otherwise
func (e *MultiError) ErrOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return *e
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

// RemoteKind classifies a failure of the remote language model
type RemoteKind int

const (
	// KindPermanent failures are surfaced to the caller
	KindPermanent RemoteKind = iota
	// KindUnavailable covers quota exhaustion, rate limiting and transient
	// outages; callers switch to the local fallback
	KindUnavailable
	// KindInvalidInput means the request was rejected before any call was made
	KindInvalidInput
)

func (k RemoteKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "permanent"
	}
}

// RemoteError is returned by the remote analysis gateway. The kind is decided
// where the failure is observed, never by inspecting message text.
type RemoteError struct {
	Kind   RemoteKind
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s failed (%s, status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError for the given operation
func NewRemoteError(kind RemoteKind, op string, status int, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, Status: status, Err: err}
}

// IsRetryable reports whether err is a remote failure that should trigger
// the local fallback
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind == KindUnavailable
	}
	return false
}

// KindOf returns the remote kind of err; errors that did not come from the
// gateway are permanent
func KindOf(err error) RemoteKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindPermanent
}
