package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cyphermed/record-access-api/internal/service"
	"github.com/cyphermed/record-access-api/internal/utils"
)

// NotificationHandler handles notification inbox HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new notification handler instance
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications handles GET /notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	identity := c.GetHeader("actor-identity")
	if identity == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	params := utils.GetPaginationParams(c)
	unreadOnly := c.Query("unreadOnly") == "true"

	notifications, total, svcErr := h.notificationService.List(c.Request.Context(), identity, unreadOnly, params.Limit, params.Offset)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"notifications": notifications,
		"pagination":    utils.NewPaginationMetadata(total, params.Limit, params.Offset),
	})
}

// MarkRead handles POST /notifications/:notificationId/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if svcErr := h.notificationService.MarkRead(c.Request.Context(), c.Param("notificationId")); svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendNoContentResponse(c)
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	identity := c.GetHeader("actor-identity")
	if identity == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	if svcErr := h.notificationService.MarkAllRead(c.Request.Context(), identity); svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendNoContentResponse(c)
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	identity := c.GetHeader("actor-identity")
	if identity == "" {
		utils.SendBadRequestError(c, "Missing actor-identity header", "")
		return
	}

	count, svcErr := h.notificationService.UnreadCount(c.Request.Context(), identity)
	if svcErr != nil {
		utils.SendServiceError(c, svcErr)
		return
	}

	utils.SendOKResponse(c, gin.H{"unread": count})
}
