package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Application error codes.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeTooLarge          = "TOO_LARGE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GRPCCode maps the error code onto a gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	switch e.Code {
	case CodeInvalidInput, CodeUnsupportedFormat, CodeConfig:
		return codes.InvalidArgument
	case CodeTooLarge, CodeRateLimited:
		return codes.ResourceExhausted
	case CodeUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// HTTPStatus maps the error code onto an HTTP status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeRateLimited:
		return http.StatusTooManyRequests
	}
	return HTTPStatusFromCode(e.GRPCCode())
}

// HTTPStatusFromCode converts a gRPC code to the closest HTTP status.
// Oversized uploads stay a 400 to match what clients already handle.
func HTTPStatusFromCode(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.ResourceExhausted:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// AsAppError returns err as an *AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAppError(CodeInternal, "internal error", err)
}

// GRPCStatus converts err into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	ae := AsAppError(err)
	return status.Error(ae.GRPCCode(), ae.Message)
}
