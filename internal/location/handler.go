// File: internal/location/handler.go
package location

import (
	"dishrent_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the read-only location list used by the admin screens.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes mounts GET /locations behind the admin middleware chain.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	group := router.Group("/locations")
	group.Use(adminMW...)
	group.GET("", h.listLocations)
}

func (h *Handler) listLocations(c *gin.Context) {
	locations, err := h.repo.FindAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list locations", zap.Error(err))
		common.RespondWithError(c, err)
		return
	}
	resp := make([]LocationResponse, len(locations))
	for i := range locations {
		resp[i] = ToLocationResponse(&locations[i])
	}
	common.RespondList(c, resp, nil)
}
