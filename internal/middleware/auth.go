// File: internal/middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"dishrent_backend/internal/common"
	"dishrent_backend/internal/config"
	"dishrent_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireConfig answers ConfigurationError while any required connection value is unset.
// It runs per request so a misconfigured deployment fails loudly instead of half-working.
func RequireConfig(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if missing := cfg.MissingRequired(); len(missing) > 0 {
			logger.Error("Required configuration missing", zap.Strings("keys", missing))
			common.RespondWithError(c, common.ErrConfiguration.WithMessage(
				"Missing required configuration: "+strings.Join(missing, ", ")))
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware authenticates the bearer ID token against the identity provider and
// only lets callers whose profile role is admin through.
func AdminAuthMiddleware(idp shared.TokenVerifier, roles shared.ProfileRoleLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)
		if token == "" {
			logger.Debug("Bearer credential missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Missing authorization header"))
			return
		}

		callerID, err := idp.VerifyToken(c.Request.Context(), token)
		if err != nil {
			logger.Warn("ID token verification failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Invalid token"))
			return
		}

		role, err := roles.RoleOf(c.Request.Context(), callerID)
		if err != nil {
			if errors.Is(err, shared.ErrProfileNotFound) {
				logger.Warn("Caller has no profile", zap.String("caller_id", callerID))
				common.RespondWithError(c, common.ErrForbidden.WithMessage("Only admins can manage users"))
				return
			}
			logger.Error("Failed to load caller role", zap.String("caller_id", callerID), zap.Error(err))
			common.RespondWithError(c, common.ErrInternalServer.WithCause(err))
			return
		}

		c.Set(common.CallerIDKey, callerID)
		c.Set(common.CallerRoleKey, role)

		if role != common.RoleAdmin {
			logger.Warn("Non-admin caller rejected", zap.String("caller_id", callerID), zap.String("role", role))
			common.RespondWithError(c, common.ErrForbidden.WithMessage("Only admins can manage users"))
			return
		}

		c.Next()
	}
}
