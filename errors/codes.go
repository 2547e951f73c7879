package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeInvalidInput indicates the caller supplied an invalid value.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Stream errors
const (
	// ErrCodeStreamClosed indicates a write or close on an already closed stream.
	ErrCodeStreamClosed ErrorCode = "STREAM_CLOSED"
	// ErrCodeFramingError indicates a torn or partial record on a byte transport.
	ErrCodeFramingError ErrorCode = "FRAMING_ERROR"
)

// Runtime errors
const (
	// ErrCodeResourceExhausted indicates a stream or execution unit could not be created.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	// ErrCodeCanceled indicates the run was canceled before it finished.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInvariantViolation indicates an internal pipeline invariant did not hold.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrCodeRateLimited indicates the caller exceeded the request rate.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeUnavailable indicates a remote sieve service could not be reached.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Only transport-level failures and throttling are retryable.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeUnavailable: true,
	ErrCodeRateLimited: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
