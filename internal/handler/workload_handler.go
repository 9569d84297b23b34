package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type workloadReader interface {
	Summary(ctx context.Context, instructorID string) (*models.WorkloadSummary, error)
}

// WorkloadHandler exposes instructor workload summaries.
type WorkloadHandler struct {
	workload workloadReader
}

// NewWorkloadHandler constructs handler.
func NewWorkloadHandler(workload workloadReader) *WorkloadHandler {
	return &WorkloadHandler{workload: workload}
}

// Summary godoc
// @Summary Instructor workload
// @Description Committed hours against the contract limit. May trail in-flight writes.
// @Tags Workload
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /instructors/{id}/workload [get]
func (h *WorkloadHandler) Summary(c *gin.Context) {
	summary, err := h.workload.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
