package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta describes the run behind a response.
type Meta struct {
	RunID     string `json:"run_id,omitempty"`
	Cached    bool   `json:"cached"`
	Stages    int    `json:"stages"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Stopped   bool   `json:"stopped"`
}

// RespondWithError derives status and body from an *errors.AppError in err;
// any other error becomes a 500. The error is attached to the gin context
// so logging and tracing middleware see it.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := errors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, errors.Internal(err).ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and run metadata.
func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}
