package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type quarterStore interface {
	List(ctx context.Context, filter models.QuarterFilter) ([]models.Quarter, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error)
	ExistsByDates(ctx context.Context, start, end time.Time, excludeID string) (bool, error)
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]models.Quarter, error)
	FindCurrent(ctx context.Context, day time.Time) (*models.Quarter, error)
	Create(ctx context.Context, quarter *models.Quarter) error
	Update(ctx context.Context, quarter *models.Quarter) error
	Delete(ctx context.Context, id string) error
	CountSchedules(ctx context.Context, id string) (int, error)
}

// QuarterService manages academic quarters. Overlap between quarters is
// rejected here only; storage does not enforce it, so two concurrent creates
// can still both succeed.
type QuarterService struct {
	repo      quarterStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuarterService constructs a quarter service.
func NewQuarterService(repo quarterStore, validate *validator.Validate, logger *zap.Logger) *QuarterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuarterService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns quarters newest first.
func (s *QuarterService) List(ctx context.Context, filter models.QuarterFilter) ([]models.Quarter, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	quarters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quarters")
	}
	return quarters, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a quarter by id.
func (s *QuarterService) Get(ctx context.Context, id string) (*models.Quarter, error) {
	quarter, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "quarter not found", "failed to load quarter")
	}
	return quarter, nil
}

// Current returns the first quarter whose range contains today.
func (s *QuarterService) Current(ctx context.Context) (*models.Quarter, error) {
	quarter, err := s.repo.FindCurrent(ctx, models.TruncateDate(s.now()))
	if err != nil {
		return nil, notFoundOrInternal(err, "no quarter covers the current date", "failed to load current quarter")
	}
	return quarter, nil
}

// Create stores a quarter after checking its range against existing ones.
func (s *QuarterService) Create(ctx context.Context, req dto.CreateQuarterRequest) (*models.Quarter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quarter payload")
	}
	start, end, err := parseQuarterRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, start, end, ""); err != nil {
		return nil, err
	}

	quarter := &models.Quarter{
		Name:      quarterName(req.Name, start, end),
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.Create(ctx, quarter); err != nil {
		return nil, uniqueOrInternal(err, "quarter with the same dates already exists", "failed to create quarter")
	}
	s.logger.Info("quarter created", zap.String("quarter_id", quarter.ID), zap.String("name", quarter.Name))
	return quarter, nil
}

// Update applies partial changes. Range checks run only when a date changed.
func (s *QuarterService) Update(ctx context.Context, id string, req dto.UpdateQuarterRequest) (*models.Quarter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quarter payload")
	}
	quarter, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "quarter not found", "failed to load quarter")
	}

	startRaw := quarter.StartDate.Format(models.DateLayout)
	endRaw := quarter.EndDate.Format(models.DateLayout)
	datesChanged := false
	if req.StartDate != nil && *req.StartDate != startRaw {
		startRaw = *req.StartDate
		datesChanged = true
	}
	if req.EndDate != nil && *req.EndDate != endRaw {
		endRaw = *req.EndDate
		datesChanged = true
	}

	if datesChanged {
		start, end, err := parseQuarterRange(startRaw, endRaw)
		if err != nil {
			return nil, err
		}
		if err := s.ensureAvailable(ctx, start, end, id); err != nil {
			return nil, err
		}
		quarter.StartDate = start
		quarter.EndDate = end
	}
	if req.Name != nil {
		quarter.Name = quarterName(*req.Name, quarter.StartDate, quarter.EndDate)
	}

	if err := s.repo.Update(ctx, quarter); err != nil {
		return nil, uniqueOrInternal(err, "quarter with the same dates already exists", "failed to update quarter")
	}
	return quarter, nil
}

// Delete removes a quarter that no class schedule references.
func (s *QuarterService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, nil, id); err != nil {
		return notFoundOrInternal(err, "quarter not found", "failed to load quarter")
	}
	count, err := s.repo.CountSchedules(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check quarter usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrBadRequest, "quarter is in use by class schedules")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete quarter")
	}
	return nil
}

func (s *QuarterService) ensureAvailable(ctx context.Context, start, end time.Time, excludeID string) error {
	exists, err := s.repo.ExistsByDates(ctx, start, end, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check quarter dates")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "quarter with the same dates already exists")
	}

	overlapping, err := s.repo.FindOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check quarter overlap")
	}
	if len(overlapping) > 0 {
		other := overlapping[0]
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("quarter overlaps with %s (%s - %s)",
			other.Name, other.StartDate.Format(models.DateLayout), other.EndDate.Format(models.DateLayout)))
	}
	return nil
}

func parseQuarterRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(models.DateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid start date")
	}
	end, err := time.Parse(models.DateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid end date")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrBadRequest, "end date must be after start date")
	}
	return start, end, nil
}

func quarterName(name string, start, end time.Time) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("%s - %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
}
