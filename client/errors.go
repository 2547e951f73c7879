package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kbukum/primesieve/errors"
)

const serviceName = "primes server"

// statusError turns a non-2xx response into an AppError. A body in the
// server's error format is decoded as is; anything else is classified by
// status code.
func statusError(status int, body *errors.ErrorResponse) *errors.AppError {
	if body != nil && body.Error.Code != "" {
		return bodyError(status, body.Error)
	}
	cause := fmt.Errorf("unexpected status %d", status)
	switch {
	case status == http.StatusTooManyRequests:
		return errors.RateLimited(serviceName)
	case status >= 500:
		return errors.Unavailable(serviceName, cause)
	default:
		return errors.Internal(cause).WithDetail("status", status)
	}
}

// bodyError rebuilds the AppError of a server error body.
func bodyError(status int, body errors.ErrorBody) *errors.AppError {
	return &errors.AppError{
		Code:       body.Code,
		Message:    body.Message,
		Retryable:  body.Retryable,
		HTTPStatus: status,
		Details:    body.Details,
	}
}

// transportError classifies a failure to reach the server.
func transportError(ctx context.Context, op string, err error) *errors.AppError {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Canceled(op, err)
	}
	return errors.Unavailable(serviceName, err)
}
