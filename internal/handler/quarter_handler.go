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

type quarterService interface {
	List(ctx context.Context, filter models.QuarterFilter) ([]models.Quarter, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Quarter, error)
	Current(ctx context.Context) (*models.Quarter, error)
	Create(ctx context.Context, req dto.CreateQuarterRequest) (*models.Quarter, error)
	Update(ctx context.Context, id string, req dto.UpdateQuarterRequest) (*models.Quarter, error)
	Delete(ctx context.Context, id string) error
}

// QuarterHandler manages academic quarters.
type QuarterHandler struct {
	service quarterService
}

// NewQuarterHandler constructs handler.
func NewQuarterHandler(svc quarterService) *QuarterHandler {
	return &QuarterHandler{service: svc}
}

// List godoc
// @Summary List quarters
// @Tags Quarters
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /quarters [get]
func (h *QuarterHandler) List(c *gin.Context) {
	var filter models.QuarterFilter
	filter.Page, filter.PageSize = pageParams(c)
	quarters, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quarters, pagination)
}

// Current godoc
// @Summary Quarter covering today
// @Tags Quarters
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quarters/current [get]
func (h *QuarterHandler) Current(c *gin.Context) {
	quarter, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quarter, nil)
}

// Get godoc
// @Summary Get quarter
// @Tags Quarters
// @Produce json
// @Param id path string true "Quarter ID"
// @Success 200 {object} response.Envelope
// @Router /quarters/{id} [get]
func (h *QuarterHandler) Get(c *gin.Context) {
	quarter, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quarter, nil)
}

// Create godoc
// @Summary Create quarter
// @Tags Quarters
// @Accept json
// @Produce json
// @Param payload body dto.CreateQuarterRequest true "Quarter payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quarters [post]
func (h *QuarterHandler) Create(c *gin.Context) {
	var req dto.CreateQuarterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quarter, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quarter)
}

// Update godoc
// @Summary Update quarter
// @Tags Quarters
// @Accept json
// @Produce json
// @Param id path string true "Quarter ID"
// @Param payload body dto.UpdateQuarterRequest true "Quarter payload"
// @Success 200 {object} response.Envelope
// @Router /quarters/{id} [put]
func (h *QuarterHandler) Update(c *gin.Context) {
	var req dto.UpdateQuarterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quarter, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quarter, nil)
}

// Delete godoc
// @Summary Delete quarter
// @Tags Quarters
// @Param id path string true "Quarter ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /quarters/{id} [delete]
func (h *QuarterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
