// File: internal/user/handler.go
package user

import (
	"bytes"
	"encoding/json"
	"fmt"

	"dishrent_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Action names accepted by POST /manage-users.
const (
	ActionCreateUser = "createUser"
	ActionUpdateUser = "updateUser"
	ActionDeleteUser = "deleteUser"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the account administration endpoint and the admin directory.
// configMW runs before authentication so a misconfigured deployment answers 500 first.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, configMW, adminMW gin.HandlerFunc) {
	router.POST("/manage-users", configMW, adminMW, h.manageUsers)

	userGroup := router.Group("/users")
	userGroup.Use(adminMW)
	{
		userGroup.GET("", h.listUsers)
		userGroup.GET("/search", h.searchUsers)
		userGroup.GET("/:id", h.getUser)
	}
}

type manageUsersRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

func (h *Handler) manageUsers(c *gin.Context) {
	var req manageUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("manage-users: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("Request body must be a JSON object with action and payload."))
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case ActionCreateUser:
		var payload CreateUserPayload
		if !h.decodePayload(c, req.Payload, &payload) {
			return
		}
		profile, err := h.service.CreateUser(ctx, payload)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondUser(c, profile)

	case ActionUpdateUser:
		var payload UpdateUserPayload
		if !h.decodePayload(c, req.Payload, &payload) {
			return
		}
		profile, err := h.service.UpdateUser(ctx, payload)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondUser(c, profile)

	case ActionDeleteUser:
		var payload DeleteUserPayload
		if !h.decodePayload(c, req.Payload, &payload) {
			return
		}
		if err := h.service.DeleteUser(ctx, payload); err != nil {
			common.RespondWithError(c, err)
			return
		}
		common.RespondAck(c)

	default:
		common.RespondWithError(c, common.ErrUnknownAction.WithMessage(fmt.Sprintf("Unknown action: %s", req.Action)))
	}
}

// decodePayload unmarshals the action payload. A missing payload decodes as an empty
// object so that required-field validation reports what is missing.
func (h *Handler) decodePayload(c *gin.Context, raw json.RawMessage, dst any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		h.logger.Debug("manage-users: payload decode failed", zap.Error(err))
		common.RespondWithError(c, common.ErrValidation.WithMessage("Payload has an invalid shape: "+err.Error()))
		return false
	}
	return true
}

func (h *Handler) listUsers(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("Invalid query parameters."))
		return
	}
	users, pagination, err := h.service.ListUsers(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondList(c, users, pagination)
}

func (h *Handler) searchUsers(c *gin.Context) {
	var page common.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("Invalid query parameters."))
		return
	}
	users, pagination, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondList(c, users, pagination)
}

func (h *Handler) getUser(c *gin.Context) {
	profile, err := h.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondUser(c, profile)
}
