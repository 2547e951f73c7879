package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/version"
)

// Version returns a handler that reports build information and uptime.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"build":          version.Get(),
			"uptime_seconds": int64(version.Uptime().Seconds()),
		})
	}
}
