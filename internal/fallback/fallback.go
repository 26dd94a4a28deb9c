// Package fallback makes the "degrade to canned data" policy explicit.
//
// Stages return a Result carrying either their own value or a substitute, and the
// error that caused the substitution, so callers can log and count fallbacks
// instead of losing them inside a recover block.
package fallback

import (
	"fmt"
	"runtime/debug"
)

// Result is the outcome of a stage that may have been replaced by a fallback value.
type Result[T any] struct {
	Value    T
	Err      error // cause of the fallback; nil when the stage succeeded
	FellBack bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fallback wraps a substitute value together with the error that triggered it.
func Fallback[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Err: cause, FellBack: true}
}

// PanicError is returned by Recover when the wrapped function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts a panic into a *PanicError.
func Recover[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// OrElse runs fn (panic-safe) and substitutes the value produced by alt on error.
// alt is only called on the failure path.
func OrElse[T any](fn func() (T, error), alt func() T) Result[T] {
	v, err := Recover(fn)
	if err != nil {
		return Fallback(alt(), err)
	}
	return Ok(v)
}

// Unwrap returns the value and the fallback cause.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}
