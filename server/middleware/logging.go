package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/logger"
)

// slowRequest marks requests worth flagging in the log.
const slowRequest = 500 * time.Millisecond

// RequestLogger logs every request with method, path, status and duration.
// Probe paths are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsProbePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", path,
			logger.FieldStatus, status,
			logger.FieldDuration, latency.Milliseconds(),
			"client", c.ClientIP(),
			"size", c.Writer.Size(),
		)
		if id := GetRequestID(c); id != "" {
			fields[logger.FieldRequestID] = id
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		if err := c.Errors.Last(); err != nil {
			fields[logger.FieldError] = err.Error()
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}

var probePaths = map[string]bool{
	"/health":          true,
	"/alive":           true,
	"/ready":           true,
	"/metrics/runtime": true,
}

// IsProbePath reports whether path is a health or metrics probe.
func IsProbePath(path string) bool {
	return probePaths[path]
}
