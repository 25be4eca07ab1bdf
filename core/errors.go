package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FailureKind classifies every failure the engine can surface to a caller.
type FailureKind string

const (
	// FailureInvalidTransition is a local state-guard rejection; it never reaches the network.
	FailureInvalidTransition FailureKind = "invalid_transition"
	// FailureUnauthorized is a local authorization-gate rejection; it never reaches the network.
	FailureUnauthorized FailureKind = "unauthorized"
	// FailureUnauthenticated means the credential is missing, expired or was rejected remotely.
	FailureUnauthenticated FailureKind = "unauthenticated"
	// FailureValidation means the payload shape/content was rejected.
	FailureValidation FailureKind = "validation_failed"
	// FailureNotFound means the target no longer exists remotely; callers must not retry.
	FailureNotFound FailureKind = "not_found"
	// FailureTransient is a network/server error with no semantic meaning; safe to retry manually.
	FailureTransient FailureKind = "transient"
)

// Failure is the typed error returned by engine and gateway operations.
// It is always returned, never panicked across the cache boundary.
type Failure struct {
	Kind    FailureKind
	Message string
	Fields  []FieldError
	Err     error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

func NewFailure(kind FailureKind, msg string) *Failure {
	return &Failure{Kind: kind, Message: msg}
}

func WrapFailure(kind FailureKind, err error, msg string) *Failure {
	return &Failure{Kind: kind, Message: msg, Err: err}
}

// FailureOf unwraps err down to a *Failure if there is one.
func FailureOf(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func IsFailureKind(err error, kind FailureKind) bool {
	if f, ok := FailureOf(err); ok {
		return f.Kind == kind
	}
	return false
}

func IsInvalidTransition(err error) bool { return IsFailureKind(err, FailureInvalidTransition) }
func IsUnauthorized(err error) bool      { return IsFailureKind(err, FailureUnauthorized) }
func IsUnauthenticated(err error) bool   { return IsFailureKind(err, FailureUnauthenticated) }
func IsValidationFailed(err error) bool  { return IsFailureKind(err, FailureValidation) }
func IsNotFound(err error) bool          { return IsFailureKind(err, FailureNotFound) }
func IsTransient(err error) bool         { return IsFailureKind(err, FailureTransient) }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
