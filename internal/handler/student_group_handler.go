package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type studentGroupService interface {
	Disable(ctx context.Context, id string) (*models.StudentGroup, error)
}

// StudentGroupHandler exposes group lifecycle operations.
type StudentGroupHandler struct {
	service studentGroupService
}

// NewStudentGroupHandler constructs handler.
func NewStudentGroupHandler(svc studentGroupService) *StudentGroupHandler {
	return &StudentGroupHandler{service: svc}
}

// Disable godoc
// @Summary Disable student group
// @Description One-way. Groups that still have class schedules cannot be disabled.
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups/{id}/disable [post]
func (h *StudentGroupHandler) Disable(c *gin.Context) {
	group, err := h.service.Disable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}
