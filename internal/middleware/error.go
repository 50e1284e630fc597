// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"dishrent_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors that handlers attached with c.Error instead of responding
// directly, and turns gin's bare 404/405 into the error envelope.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if last := c.Errors.Last(); last != nil {
			if _, ok := common.IsAPIError(last.Err); !ok {
				logger.Error("Unhandled application error",
					zap.Error(last.Err),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(RequestIDContextKey)),
				)
			}
			common.RespondWithError(c, last.Err)
			return
		}

		switch c.Writer.Status() {
		case http.StatusNotFound:
			common.RespondWithError(c, common.ErrNotFound.WithMessage("The requested endpoint does not exist."))
		case http.StatusMethodNotAllowed:
			common.RespondWithError(c, common.ErrMethodNotAllow)
		}
	}
}
