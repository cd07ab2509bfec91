package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astba/training-api/internal/middleware"
	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/internal/service"
	appErrors "github.com/astba/training-api/pkg/errors"
	"github.com/astba/training-api/pkg/response"
)

// NotificationHandler manages the current user's notifications.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

func currentUserID(c *gin.Context) (string, error) {
	claimsValue, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return "", appErrors.ErrUnauthorized
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	if !ok {
		return "", appErrors.ErrUnauthorized
	}
	return claims.UserID, nil
}

// List godoc
// @Summary List the current user's notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	notifications, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// Unread godoc
// @Summary List the current user's unread notifications with count
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread [get]
func (h *NotificationHandler) Unread(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.service.ListUnread(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unread, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification of the current user as read
// @Tags Notifications
// @Success 204
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
