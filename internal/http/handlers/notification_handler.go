// README: Device token registration.
package handlers

import (
	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
	"londa/internal/modules/notification"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.notifications.RegisterToken(c.Request.Context(), caller(c), req.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Device token registered successfully", nil)
}
