// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the uniform response body of the account administration API.
type Envelope struct {
	Success bool   `json:"success"`
	User    any    `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ListEnvelope wraps directory reads.
type ListEnvelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// RespondWithError aborts the request with the error envelope. Errors that are not
// APIErrors are logged and rendered as a generic internal error.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer.WithCause(err)
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, Envelope{
		Success: false,
		Error:   apiErr.Message,
		Code:    apiErr.Code,
	})
}

// RespondUser sends a 200 envelope carrying a formatted profile.
func RespondUser(c *gin.Context, user any) {
	c.JSON(http.StatusOK, Envelope{Success: true, User: user})
}

// RespondAck sends a bare 200 success envelope.
func RespondAck(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// RespondList sends a 200 list envelope.
func RespondList(c *gin.Context, data any, pagination *Pagination) {
	c.JSON(http.StatusOK, ListEnvelope{Success: true, Data: data, Pagination: pagination})
}
