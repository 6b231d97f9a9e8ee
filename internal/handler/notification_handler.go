package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rmaulana/school-notify-api/internal/service"
	appErrors "github.com/rmaulana/school-notify-api/pkg/errors"
	"github.com/rmaulana/school-notify-api/pkg/response"
)

// NotificationHandler exposes the notification lifecycle endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
	dashboards    *service.DashboardService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService, dashboards *service.DashboardService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, dashboards: dashboards}
}

// Create godoc
// @Summary Create a notification about a student
// @Description Teachers send Attendance and Academic notifications, office staff Administrative and Health
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.CreateNotificationRequest true "Notification payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	notification, err := h.notifications.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboards.Invalidate(c.Request.Context())
	response.Created(c, notification)
}

// ListMine godoc
// @Summary List notifications created by the authenticated teacher
// @Tags Notifications
// @Produce json
// @Param limit query int false "Cap on returned items"
// @Success 200 {object} response.Envelope
// @Router /notifications/mine [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.notifications.ListForTeacher(c.Request.Context(), actor, parseLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListAll godoc
// @Summary List notifications across all students
// @Tags Notifications
// @Produce json
// @Param limit query int false "Cap on returned items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) ListAll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.notifications.ListForOffice(c.Request.Context(), actor, parseLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListForParent godoc
// @Summary List notifications for the authenticated parent's students
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/parent [get]
func (h *NotificationHandler) ListForParent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.notifications.ListForParent(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Description Idempotent: marking an already-read notification keeps its original read timestamp
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark all of the parent's notifications as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.notifications.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
