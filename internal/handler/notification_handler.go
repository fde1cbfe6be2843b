package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/response"
)

type notificationService interface {
	Create(ctx context.Context, teacherID int64, req service.CreateNotificationRequest) (*models.NotificationReceipt, error)
	Redispatch(ctx context.Context, id int64) (*models.NotificationReceipt, error)
	Get(ctx context.Context, id int64) (*models.Notification, error)
	ListByTeacher(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
}

// NotificationHandler exposes notification endpoints.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Send godoc
// @Summary Send a notification as the authenticated teacher
// @Description Stores the notification and queues delivery to its recipients.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateNotificationRequest true "Notification payload"
// @Success 202 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/notifications [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateNotificationRequest
	if !decodeJSON(c, &req, "notification") {
		return
	}
	receipt, err := h.service.Create(c.Request.Context(), claims.TeacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, receipt, nil)
}

// Redispatch godoc
// @Summary Queue delivery of a stored notification again
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 202 {object} response.Envelope
// @Router /admin/notifications/{id}/dispatch [post]
func (h *NotificationHandler) Redispatch(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	receipt, err := h.service.Redispatch(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, receipt, nil)
}

// Get godoc
// @Summary Get notification
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /admin/notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	notification, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notification, nil)
}

// ListByTeacher godoc
// @Summary List a teacher's notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{id}/notifications [get]
func (h *NotificationHandler) ListByTeacher(c *gin.Context) {
	teacherID, ok := idParam(c, "id")
	if !ok {
		return
	}
	filter := models.NotificationFilter{TeacherID: teacherID}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	items, pagination, err := h.service.ListByTeacher(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
