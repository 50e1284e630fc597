// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// CallerIDKey is the context key for the authenticated caller's account id
	CallerIDKey = "callerID"
	// CallerRoleKey is the context key for the authenticated caller's profile role
	CallerRoleKey = "callerRole"
	// LoggerKey is the context key for the request-scoped logger
	LoggerKey = "logger"
)
