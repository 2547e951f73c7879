package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// StreamClosed creates a new AppError for an operation on a closed stream.
func StreamClosed(op string) *AppError {
	return &AppError{
		Code: ErrCodeStreamClosed, Message: fmt.Sprintf("%s on closed stream", op),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"operation": op},
	}
}

// Framing creates a new AppError for a torn record of got bytes out of want.
func Framing(got, want int) *AppError {
	return &AppError{
		Code: ErrCodeFramingError, Message: fmt.Sprintf("torn record: read %d of %d bytes", got, want),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"read": got, "record_size": want},
	}
}

// ResourceExhausted creates a new AppError for a failed stream or unit creation.
func ResourceExhausted(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeResourceExhausted, Message: fmt.Sprintf("unable to create %s", resource),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"resource": resource}, Cause: cause,
	}
}

// Canceled creates a new AppError for an operation interrupted by its context.
func Canceled(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("%s canceled", op),
		HTTPStatus: http.StatusRequestTimeout, Retryable: false,
		Details: map[string]any{"operation": op}, Cause: cause,
	}
}

// Invariant creates a new AppError for a violated pipeline invariant.
func Invariant(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvariantViolation, Message: reason,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// RateLimited creates a new AppError for a request rejected by a rate limiter.
func RateLimited(limiter string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please slow down.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"limiter": limiter},
	}
}

// Unavailable creates a new AppError for an unreachable remote service.
func Unavailable(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Inspection ---

// HasCode reports whether any AppError in err's tree carries code.
// Joined errors are searched branch by branch.
func HasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *AppError:
		if e.Code == code {
			return true
		}
		return HasCode(e.Cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	return false
}

// IsStreamClosed reports whether err is a STREAM_CLOSED error.
func IsStreamClosed(err error) bool { return HasCode(err, ErrCodeStreamClosed) }

// IsFraming reports whether err is a FRAMING_ERROR.
func IsFraming(err error) bool { return HasCode(err, ErrCodeFramingError) }

// IsResourceExhausted reports whether err is a RESOURCE_EXHAUSTED error.
func IsResourceExhausted(err error) bool { return HasCode(err, ErrCodeResourceExhausted) }

// IsUnavailable reports whether err is a SERVICE_UNAVAILABLE error.
func IsUnavailable(err error) bool { return HasCode(err, ErrCodeUnavailable) }

// IsCanceled reports whether err is a CANCELED error.
func IsCanceled(err error) bool { return HasCode(err, ErrCodeCanceled) }
