package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/export"
)

type timetableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type resourceScheduleLister interface {
	ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error)
}

var timetableHeaders = []string{"Day", "Time", "Subject", "Instructor", "Classroom", "Group"}

// TimetableExportService renders the timetable of one resource in one quarter.
type TimetableExportService struct {
	schedules resourceScheduleLister
	resources *ScheduleValidator
	quarters  quarterReader
	renderers map[string]timetableRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableExportService constructs the exporter with CSV and PDF renderers.
func NewTimetableExportService(schedules resourceScheduleLister, resources *ScheduleValidator, quarters quarterReader, csv, pdf timetableRenderer, validate *validator.Validate, logger *zap.Logger) *TimetableExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableExportService{
		schedules: schedules,
		resources: resources,
		quarters:  quarters,
		renderers: map[string]timetableRenderer{"csv": csv, "pdf": pdf},
		validator: validate,
		logger:    logger,
	}
}

// Export renders the requested timetable. Format defaults to CSV.
func (s *TimetableExportService) Export(ctx context.Context, req dto.TimetableExportRequest) (*dto.TimetableFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok || renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unsupported export format %q", req.Format))
	}

	quarter, err := s.quarters.FindByID(ctx, nil, req.QuarterID)
	if err != nil {
		return nil, notFoundOrInternal(err, "quarter not found", "failed to load quarter")
	}
	dim := models.ConflictType(req.Resource)
	name, err := s.resources.describeResource(ctx, dim, req.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.schedules.ListByResource(ctx, dim, req.ID, quarter.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.buildRows(ctx, items)
	if err != nil {
		return nil, err
	}
	content, err := renderer.Render(export.Dataset{
		Title:   fmt.Sprintf("Timetable %s - %s", name, quarter.Name),
		Headers: timetableHeaders,
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("resource", req.Resource),
		zap.String("resource_id", req.ID),
		zap.String("quarter_id", quarter.ID),
		zap.String("format", format),
		zap.Int("rows", len(rows)))

	return &dto.TimetableFile{
		Filename:    fmt.Sprintf("timetable-%s-%s.%s", req.Resource, req.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

// buildRows resolves display names once per referenced resource.
func (s *TimetableExportService) buildRows(ctx context.Context, items []models.ClassScheduleDetail) ([]map[string]string, error) {
	names := make(map[string]string)
	lookup := func(dim models.ConflictType, id string) (string, error) {
		key := string(dim) + ":" + id
		if name, ok := names[key]; ok {
			return name, nil
		}
		name, err := s.resources.describeResource(ctx, dim, id)
		if err != nil {
			if appErrors.FromError(err).Code != appErrors.ErrNotFound.Code {
				return "", err
			}
			name = unknownResourceName
		}
		names[key] = name
		return name, nil
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		instructor, err := lookup(models.ConflictInstructor, item.InstructorID)
		if err != nil {
			return nil, err
		}
		classroom, err := lookup(models.ConflictClassroom, item.ClassroomID)
		if err != nil {
			return nil, err
		}
		group, err := lookup(models.ConflictGroup, item.GroupID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, map[string]string{
			"Day":        item.DayName,
			"Time":       item.TimeBlockLabel(),
			"Subject":    item.Subject,
			"Instructor": instructor,
			"Classroom":  classroom,
			"Group":      group,
		})
	}
	return rows, nil
}
