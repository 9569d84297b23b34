package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type timeSlotService interface {
	ListDays(ctx context.Context) ([]models.Day, error)
	ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error)
	CreateTimeBlock(ctx context.Context, req dto.TimeBlockRequest) (*models.TimeBlock, error)
	UpdateTimeBlock(ctx context.Context, id string, req dto.TimeBlockRequest) (*models.TimeBlock, error)
	DeleteTimeBlock(ctx context.Context, id string) error
	ListSlots(ctx context.Context) ([]models.DayTimeBlockDetail, error)
	CreateSlot(ctx context.Context, req dto.CreateSlotRequest) (*models.DayTimeBlockDetail, error)
	DeleteSlot(ctx context.Context, id string) error
}

// TimeSlotHandler serves the day, time block and slot catalog.
type TimeSlotHandler struct {
	service timeSlotService
}

// NewTimeSlotHandler constructs handler.
func NewTimeSlotHandler(svc timeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{service: svc}
}

// ListDays godoc
// @Summary List weekdays
// @Tags TimeSlots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /days [get]
func (h *TimeSlotHandler) ListDays(c *gin.Context) {
	days, err := h.service.ListDays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// ListTimeBlocks godoc
// @Summary List time blocks
// @Tags TimeSlots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-blocks [get]
func (h *TimeSlotHandler) ListTimeBlocks(c *gin.Context) {
	blocks, err := h.service.ListTimeBlocks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// CreateTimeBlock godoc
// @Summary Create time block
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.TimeBlockRequest true "Clock range"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-blocks [post]
func (h *TimeSlotHandler) CreateTimeBlock(c *gin.Context) {
	var req dto.TimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	block, err := h.service.CreateTimeBlock(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// UpdateTimeBlock godoc
// @Summary Update time block
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param id path string true "Time block ID"
// @Param payload body dto.TimeBlockRequest true "Clock range"
// @Success 200 {object} response.Envelope
// @Router /time-blocks/{id} [put]
func (h *TimeSlotHandler) UpdateTimeBlock(c *gin.Context) {
	var req dto.TimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	block, err := h.service.UpdateTimeBlock(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block, nil)
}

// DeleteTimeBlock godoc
// @Summary Delete time block
// @Tags TimeSlots
// @Param id path string true "Time block ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /time-blocks/{id} [delete]
func (h *TimeSlotHandler) DeleteTimeBlock(c *gin.Context) {
	if err := h.service.DeleteTimeBlock(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List schedulable slots
// @Tags TimeSlots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *TimeSlotHandler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateSlot godoc
// @Summary Create slot
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Day and time block"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots [post]
func (h *TimeSlotHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteSlot godoc
// @Summary Delete slot
// @Tags TimeSlots
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *TimeSlotHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
