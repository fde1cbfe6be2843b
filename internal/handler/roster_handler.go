package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/roster-api/internal/dto"
	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/pkg/response"
)

type registrationService interface {
	RegisterStudents(ctx context.Context, teacherEmail string, studentEmails []string, classTitle *string) ([]int64, error)
}

type rosterQueryService interface {
	FindCommonStudents(ctx context.Context, teacherEmails []string) ([]string, error)
	GetNotificationRecipients(ctx context.Context, teacherEmail, text string) ([]string, error)
}

type suspensionService interface {
	Suspend(ctx context.Context, email string) (*models.Student, error)
}

// RosterHandler exposes the public roster endpoints.
type RosterHandler struct {
	registration registrationService
	queries      rosterQueryService
	students     suspensionService
	validate     *validator.Validate
}

// NewRosterHandler builds a new handler.
func NewRosterHandler(registration registrationService, queries rosterQueryService, students suspensionService, validate *validator.Validate) *RosterHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &RosterHandler{registration: registration, queries: queries, students: students, validate: validate}
}

// Register godoc
// @Summary Register students to a teacher
// @Description Creates missing teachers, students and the class, then links every student to the teacher. Repeating a registration is a no-op.
// @Tags Roster
// @Accept json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /register [post]
func (h *RosterHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, h.validate, &req, "register") {
		return
	}
	if _, err := h.registration.RegisterStudents(c.Request.Context(), req.Teacher, req.Students, req.Class); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CommonStudents godoc
// @Summary List students common to all given teachers
// @Tags Roster
// @Produce json
// @Param teacher query []string true "Teacher email, repeatable" collectionFormat(multi)
// @Success 200 {object} dto.CommonStudentsResponse
// @Failure 404 {object} response.Envelope
// @Router /commonstudents [get]
func (h *RosterHandler) CommonStudents(c *gin.Context) {
	query := dto.CommonStudentsQuery{Teachers: c.QueryArray("teacher")}
	if !validateStruct(c, h.validate, &query, "commonstudents query") {
		return
	}
	students, err := h.queries.FindCommonStudents(c.Request.Context(), query.Teachers)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Body(c, http.StatusOK, dto.CommonStudentsResponse{Students: students})
}

// Suspend godoc
// @Summary Suspend a student
// @Tags Roster
// @Accept json
// @Param payload body dto.SuspendRequest true "Student to suspend"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /suspend [post]
func (h *RosterHandler) Suspend(c *gin.Context) {
	var req dto.SuspendRequest
	if !bindJSON(c, h.validate, &req, "suspend") {
		return
	}
	if _, err := h.students.Suspend(c.Request.Context(), req.Student); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RetrieveForNotifications godoc
// @Summary List the students who receive a notification
// @Description Registered students of the teacher plus students @mentioned in the text, excluding suspended ones.
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.RecipientsRequest true "Notification payload"
// @Success 200 {object} dto.RecipientsResponse
// @Failure 404 {object} response.Envelope
// @Router /retrievefornotifications [post]
func (h *RosterHandler) RetrieveForNotifications(c *gin.Context) {
	var req dto.RecipientsRequest
	if !bindJSON(c, h.validate, &req, "notification") {
		return
	}
	recipients, err := h.queries.GetNotificationRecipients(c.Request.Context(), req.Teacher, req.Notification)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Body(c, http.StatusOK, dto.RecipientsResponse{Recipients: recipients})
}
