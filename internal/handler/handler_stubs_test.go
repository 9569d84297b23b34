package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type classScheduleServiceMock struct {
	validation   *models.ScheduleValidation
	result       *models.ClassScheduleResult
	detail       *models.ClassScheduleDetail
	items        []models.ClassScheduleDetail
	err          error
	lastFilter   models.ClassScheduleFilter
	lastDim      models.ConflictType
	lastQuarter  string
	createCalled bool
}

func (m *classScheduleServiceMock) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ScheduleValidation, error) {
	return m.validation, m.err
}

func (m *classScheduleServiceMock) Get(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	return m.detail, m.err
}

func (m *classScheduleServiceMock) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.items, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.items)}, m.err
}

func (m *classScheduleServiceMock) ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error) {
	m.lastDim = dim
	m.lastQuarter = quarterID
	return m.items, m.err
}

func (m *classScheduleServiceMock) Create(ctx context.Context, req dto.ClassScheduleRequest) (*models.ClassScheduleResult, error) {
	m.createCalled = true
	return m.result, m.err
}

func (m *classScheduleServiceMock) Update(ctx context.Context, id string, req dto.UpdateClassScheduleRequest) (*models.ClassScheduleResult, error) {
	return m.result, m.err
}

func (m *classScheduleServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

type workloadReaderMock struct {
	summary *models.WorkloadSummary
}

func (m workloadReaderMock) Summary(ctx context.Context, instructorID string) (*models.WorkloadSummary, error) {
	if m.summary == nil || m.summary.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	return m.summary, nil
}

type timeSlotServiceMock struct {
	err error
}

func (m timeSlotServiceMock) ListDays(ctx context.Context) ([]models.Day, error) {
	return []models.Day{{ID: 1, Name: "Monday"}}, m.err
}

func (m timeSlotServiceMock) ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error) {
	return nil, m.err
}

func (m timeSlotServiceMock) CreateTimeBlock(ctx context.Context, req dto.TimeBlockRequest) (*models.TimeBlock, error) {
	return &models.TimeBlock{ID: "tb-1", StartTime: req.StartTime, EndTime: req.EndTime}, m.err
}

func (m timeSlotServiceMock) UpdateTimeBlock(ctx context.Context, id string, req dto.TimeBlockRequest) (*models.TimeBlock, error) {
	return &models.TimeBlock{ID: id}, m.err
}

func (m timeSlotServiceMock) DeleteTimeBlock(ctx context.Context, id string) error { return m.err }

func (m timeSlotServiceMock) ListSlots(ctx context.Context) ([]models.DayTimeBlockDetail, error) {
	return nil, m.err
}

func (m timeSlotServiceMock) CreateSlot(ctx context.Context, req dto.CreateSlotRequest) (*models.DayTimeBlockDetail, error) {
	return &models.DayTimeBlockDetail{}, m.err
}

func (m timeSlotServiceMock) DeleteSlot(ctx context.Context, id string) error { return m.err }

type quarterServiceMock struct {
	quarter *models.Quarter
	err     error
}

func (m quarterServiceMock) List(ctx context.Context, filter models.QuarterFilter) ([]models.Quarter, *models.Pagination, error) {
	return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, m.err
}

func (m quarterServiceMock) Get(ctx context.Context, id string) (*models.Quarter, error) {
	return m.quarter, m.err
}

func (m quarterServiceMock) Current(ctx context.Context) (*models.Quarter, error) {
	return m.quarter, m.err
}

func (m quarterServiceMock) Create(ctx context.Context, req dto.CreateQuarterRequest) (*models.Quarter, error) {
	return m.quarter, m.err
}

func (m quarterServiceMock) Update(ctx context.Context, id string, req dto.UpdateQuarterRequest) (*models.Quarter, error) {
	return m.quarter, m.err
}

func (m quarterServiceMock) Delete(ctx context.Context, id string) error { return m.err }

type studentGroupServiceMock struct {
	err error
}

func (m studentGroupServiceMock) Disable(ctx context.Context, id string) (*models.StudentGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.StudentGroup{ID: id}, nil
}

type timetableExporterMock struct {
	lastReq dto.TimetableExportRequest
	err     error
}

func (m *timetableExporterMock) Export(ctx context.Context, req dto.TimetableExportRequest) (*dto.TimetableFile, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.TimetableFile{Filename: "timetable-group-G1.csv", ContentType: "text/csv", Content: []byte("Day,Time\n")}, nil
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, nil)
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, w
}
