// Package result provides the uniform Result/Error carrier used across the
// firewall controller. Every wire-visible or recoverable operation returns a
// Result instead of a bare error so that callers always have a stable error
// code alongside the message, and so that misuse (reading the value of a
// failure, or the error of a success) is a programmer error that panics
// rather than a silently zero value.
package result

import "fmt"

// Code is a stable error code surfaced at every interface boundary:
// the engine facade, the reconciliation engine, the LKG store and the
// request server all report failures through one of these codes.
type Code string

const (
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAccessDenied       Code = "ACCESS_DENIED"
	CodeWFPError           Code = "WFP_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUnknown            Code = "UNKNOWN"
)

// Error is the failure half of a Result. It carries a stable code, a
// human-readable message intended to be safe to put on the wire, and an
// optional underlying cause for log-side chaining (never serialized).
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error chaining an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Result is either Success(value) or Failure(err). It is the return type
// of every operation that can fail in a way callers must handle (as
// opposed to a programmer error, which panics directly).
type Result[T any] struct {
	value T
	err   *Error
	ok    bool
}

// Ok constructs a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Fail constructs a failed Result.
func Fail[T any](err *Error) Result[T] {
	if err == nil {
		panic("result: Fail called with nil error")
	}
	return Result[T]{err: err, ok: false}
}

// IsOk reports whether the Result is a success.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the success value. Calling it on a Failure is a programmer
// error and panics.
func (r Result[T]) Value() T {
	if !r.ok {
		panic(fmt.Sprintf("result: Value() called on Failure: %v", r.err))
	}
	return r.value
}

// Err returns the failure. Calling it on a Success is a programmer error
// and panics.
func (r Result[T]) Err() *Error {
	if r.ok {
		panic("result: Err() called on Success")
	}
	return r.err
}

// Unwrap returns (value, error) the idiomatic Go way, usable regardless of
// which side the Result holds. This is the normal way callers outside this
// package should consume a Result.
func (r Result[T]) Unwrap() (T, *Error) {
	return r.value, r.err
}
