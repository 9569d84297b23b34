package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type timetableExporter interface {
	Export(ctx context.Context, req dto.TimetableExportRequest) (*dto.TimetableFile, error)
}

// TimetableHandler streams rendered timetables.
type TimetableHandler struct {
	exporter timetableExporter
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{exporter: exporter}
}

// Export godoc
// @Summary Export a timetable
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param resource query string true "instructor, classroom or group"
// @Param id query string true "Resource ID"
// @Param quarterId query string true "Quarter ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.TimetableExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
