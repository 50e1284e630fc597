// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTokenFromContext retrieves the bearer token from the Authorization header.
// Returns an empty string if not found or malformed.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader(AuthorizationHeader))
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetCallerIDFromContext retrieves the authenticated caller's account id.
func GetCallerIDFromContext(c *gin.Context) string {
	return c.GetString(CallerIDKey)
}

// GetCallerRoleFromContext retrieves the authenticated caller's role.
func GetCallerRoleFromContext(c *gin.Context) string {
	return c.GetString(CallerRoleKey)
}
