package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type classScheduleService interface {
	Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ScheduleValidation, error)
	Get(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, *models.Pagination, error)
	ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error)
	Create(ctx context.Context, req dto.ClassScheduleRequest) (*models.ClassScheduleResult, error)
	Update(ctx context.Context, id string, req dto.UpdateClassScheduleRequest) (*models.ClassScheduleResult, error)
	Delete(ctx context.Context, id string) error
}

// ClassScheduleHandler manages class schedule endpoints.
type ClassScheduleHandler struct {
	service classScheduleService
}

// NewClassScheduleHandler constructs handler.
func NewClassScheduleHandler(svc classScheduleService) *ClassScheduleHandler {
	return &ClassScheduleHandler{service: svc}
}

// Validate godoc
// @Summary Dry-run a schedule assignment
// @Description Reports conflicts and advisory warnings without writing anything.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Candidate assignment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ClassScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List class schedules
// @Tags Schedules
// @Produce json
// @Param subject query string false "Subject contains"
// @Param instructorId query string false "Filter by instructor"
// @Param classroomId query string false "Filter by classroom"
// @Param groupId query string false "Filter by group"
// @Param quarterId query string false "Filter by quarter"
// @Param dayId query int false "Filter by day (1 = Monday)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ClassScheduleHandler) List(c *gin.Context) {
	filter := models.ClassScheduleFilter{
		Subject:      c.Query("subject"),
		InstructorID: c.Query("instructorId"),
		ClassroomID:  c.Query("classroomId"),
		GroupID:      c.Query("groupId"),
		QuarterID:    c.Query("quarterId"),
	}
	if raw := c.Query("dayId"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 1 || day > 7 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayId must be between 1 and 7"))
			return
		}
		filter.DayID = day
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get class schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ClassScheduleHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create class schedule
// @Description Conflicts return 409 with the conflict list in meta. Warnings never block.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ClassScheduleRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ClassScheduleHandler) Create(c *gin.Context) {
	var req dto.ClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update class schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpdateClassScheduleRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ClassScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete class schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ClassScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByResource returns a handler listing the timetable of one resource.
// @Summary List schedules of an instructor, classroom or group
// @Tags Schedules
// @Produce json
// @Param id path string true "Resource ID"
// @Param quarterId query string false "Restrict to quarter"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/schedules [get]
// @Router /classrooms/{id}/schedules [get]
// @Router /groups/{id}/schedules [get]
func (h *ClassScheduleHandler) ListByResource(dim models.ConflictType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query dto.ResourceScheduleQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
			return
		}
		items, err := h.service.ListByResource(c.Request.Context(), dim, c.Param("id"), query.QuarterID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, items, nil)
	}
}
