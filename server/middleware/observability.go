package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/primesieve/observability"
)

// Observability wraps each request in an operation: a server span whose
// parent is taken from the incoming trace headers, plus request metrics.
// metrics may be nil.
func Observability(serviceName string, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		oc := observability.NewOperationContext(serviceName, c.Request.Method+" "+route, GetRequestID(c), metrics)
		ctx = observability.WithOperationContext(ctx, oc)
		ctx, span := oc.StartSpanForOperation(ctx, observability.SpanHTTPRequest,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		oc.EndOperation(ctx, span, strconv.Itoa(status), err)
	}
}
