package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

type registerService interface {
	Get(ctx context.Context, id int64) (*models.Register, error)
	Repoint(ctx context.Context, id int64, req service.RepointRegisterRequest) (*models.Register, error)
	Delete(ctx context.Context, id int64) (*models.Register, error)
}

// RegisterHandler manages individual registers.
type RegisterHandler struct {
	service registerService
}

// NewRegisterHandler constructs the handler.
func NewRegisterHandler(svc registerService) *RegisterHandler {
	return &RegisterHandler{service: svc}
}

// Get godoc
// @Summary Get register
// @Tags Registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registers/{id} [get]
func (h *RegisterHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	register, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, register, nil)
}

// Repoint godoc
// @Summary Move a register to another teacher, student or class
// @Tags Registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param payload body service.RepointRegisterRequest true "Register payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registers/{id} [patch]
func (h *RegisterHandler) Repoint(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.RepointRegisterRequest
	if !decodeJSON(c, &req, "register") {
		return
	}
	register, err := h.service.Repoint(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, register, nil)
}

// Delete godoc
// @Summary Delete register
// @Tags Registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registers/{id} [delete]
func (h *RegisterHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	register, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, register, nil)
}
