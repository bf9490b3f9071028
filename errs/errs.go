// Package errs provides structured error types and helpers shared across respool.
package errs

import (
	"strconv"
	"strings"
)

// Code identifies a pool error category.
type Code string

const (
	// CodeExhausted indicates no free resource was available for a non-blocking attempt.
	CodeExhausted Code = "exhausted"
	// CodeTimeout indicates a blocking acquisition exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeClosed indicates the pool has been drained and no longer serves requests.
	CodeClosed Code = "closed"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeInternal indicates a broken internal invariant.
	CodeInternal Code = "internal"
)

// E captures structured error information produced across the respool stack.
type E struct {
	Component   string
	Code        Code
	Message     string
	Remediation string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the component and error code.
func New(component string, code Code, opts ...Option) *E {
	e := &E{
		Component:   strings.TrimSpace(component),
		Code:        code,
		Message:     "",
		Remediation: "",
		cause:       nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithRemediation attaches remediation guidance to the error.
func WithRemediation(remediation string) Option {
	trimmed := strings.TrimSpace(remediation)
	return func(e *E) {
		e.Remediation = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	component := strings.TrimSpace(e.Component)
	if component == "" {
		component = "unknown"
	}
	parts = append(parts, "component="+component)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.Remediation != "" {
		parts = append(parts, "remediation="+strconv.Quote(e.Remediation))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the code from a respool error, returning CodeInternal for
// foreign errors and an empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for {
		if e, ok := err.(*E); ok {
			return e.Code
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return CodeInternal
		}
		err = u.Unwrap()
		if err == nil {
			return CodeInternal
		}
	}
}
