package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type dayStore interface {
	List(ctx context.Context) ([]models.Day, error)
	FindByID(ctx context.Context, id int) (*models.Day, error)
}

type timeBlockStore interface {
	List(ctx context.Context) ([]models.TimeBlock, error)
	FindByID(ctx context.Context, id string) (*models.TimeBlock, error)
	ExistsByTimes(ctx context.Context, start, end, excludeID string) (bool, error)
	Create(ctx context.Context, block *models.TimeBlock) error
	Update(ctx context.Context, block *models.TimeBlock) error
	Delete(ctx context.Context, id string) error
	CountSlots(ctx context.Context, id string) (int, error)
}

type slotStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DayTimeBlockDetail, error)
	List(ctx context.Context) ([]models.DayTimeBlockDetail, error)
	Exists(ctx context.Context, dayID int, timeBlockID string) (bool, error)
	Create(ctx context.Context, slot *models.DayTimeBlock) error
	Delete(ctx context.Context, id string) error
	CountSchedules(ctx context.Context, id string) (int, error)
}

// TimeSlotService manages days, time blocks and the slots built from them.
// Distinct time blocks may overlap on the clock; only identical ranges are rejected.
type TimeSlotService struct {
	days      dayStore
	blocks    timeBlockStore
	slots     slotStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService constructs a time slot service.
func NewTimeSlotService(days dayStore, blocks timeBlockStore, slots slotStore, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{days: days, blocks: blocks, slots: slots, validator: validate, logger: logger}
}

// ListDays returns the seven weekdays ordered Monday first.
func (s *TimeSlotService) ListDays(ctx context.Context) ([]models.Day, error) {
	days, err := s.days.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list days")
	}
	return days, nil
}

// ListTimeBlocks returns every time block ordered by start time.
func (s *TimeSlotService) ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error) {
	blocks, err := s.blocks.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time blocks")
	}
	return blocks, nil
}

// CreateTimeBlock stores a new clock range.
func (s *TimeSlotService) CreateTimeBlock(ctx context.Context, req dto.TimeBlockRequest) (*models.TimeBlock, error) {
	start, end, err := s.parseRange(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueBlock(ctx, start, end, ""); err != nil {
		return nil, err
	}

	block := &models.TimeBlock{StartTime: start, EndTime: end}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, uniqueOrInternal(err, "time block with the same start and end already exists", "failed to create time block")
	}
	s.logger.Info("time block created", zap.String("time_block_id", block.ID), zap.String("range", block.Label()))
	return block, nil
}

// UpdateTimeBlock replaces the range of a time block that no slot uses yet.
func (s *TimeSlotService) UpdateTimeBlock(ctx context.Context, id string, req dto.TimeBlockRequest) (*models.TimeBlock, error) {
	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "time block not found", "failed to load time block")
	}
	start, end, err := s.parseRange(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBlockUnused(ctx, id); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueBlock(ctx, start, end, id); err != nil {
		return nil, err
	}

	block.StartTime = start
	block.EndTime = end
	if err := s.blocks.Update(ctx, block); err != nil {
		return nil, uniqueOrInternal(err, "time block with the same start and end already exists", "failed to update time block")
	}
	return block, nil
}

// DeleteTimeBlock removes a time block that no slot uses.
func (s *TimeSlotService) DeleteTimeBlock(ctx context.Context, id string) error {
	if _, err := s.blocks.FindByID(ctx, id); err != nil {
		return notFoundOrInternal(err, "time block not found", "failed to load time block")
	}
	if err := s.ensureBlockUnused(ctx, id); err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time block")
	}
	return nil
}

// ListSlots returns every slot with its day and time block resolved.
func (s *TimeSlotService) ListSlots(ctx context.Context) ([]models.DayTimeBlockDetail, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day time blocks")
	}
	return slots, nil
}

// CreateSlot pairs a day with a time block.
func (s *TimeSlotService) CreateSlot(ctx context.Context, req dto.CreateSlotRequest) (*models.DayTimeBlockDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	day, err := s.days.FindByID(ctx, req.DayID)
	if err != nil {
		return nil, notFoundOrInternal(err, "day not found", "failed to load day")
	}
	block, err := s.blocks.FindByID(ctx, req.TimeBlockID)
	if err != nil {
		return nil, notFoundOrInternal(err, "time block not found", "failed to load time block")
	}
	exists, err := s.slots.Exists(ctx, day.ID, block.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check day time block")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "day time block already exists")
	}

	slot := &models.DayTimeBlock{DayID: day.ID, TimeBlockID: block.ID}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, uniqueOrInternal(err, "day time block already exists", "failed to create day time block")
	}
	return &models.DayTimeBlockDetail{
		DayTimeBlock: *slot,
		DayName:      day.Name,
		StartTime:    block.StartTime,
		EndTime:      block.EndTime,
	}, nil
}

// DeleteSlot removes a slot that no class schedule references.
func (s *TimeSlotService) DeleteSlot(ctx context.Context, id string) error {
	if _, err := s.slots.FindByID(ctx, nil, id); err != nil {
		return notFoundOrInternal(err, "day time block not found", "failed to load day time block")
	}
	count, err := s.slots.CountSchedules(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check day time block usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrBadRequest, "day time block is in use by class schedules")
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete day time block")
	}
	return nil
}

func (s *TimeSlotService) parseRange(req dto.TimeBlockRequest) (string, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time block payload")
	}
	start, startMinutes, err := normalizeClock(req.StartTime)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid start time")
	}
	end, endMinutes, err := normalizeClock(req.EndTime)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid end time")
	}
	if startMinutes >= endMinutes {
		return "", "", appErrors.Clone(appErrors.ErrBadRequest, "start time must be before end time")
	}
	return start, end, nil
}

func (s *TimeSlotService) ensureUniqueBlock(ctx context.Context, start, end, excludeID string) error {
	exists, err := s.blocks.ExistsByTimes(ctx, start, end, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time block")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "time block with the same start and end already exists")
	}
	return nil
}

func (s *TimeSlotService) ensureBlockUnused(ctx context.Context, id string) error {
	count, err := s.blocks.CountSlots(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time block usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrBadRequest, "time block is in use by day time blocks")
	}
	return nil
}

// normalizeClock parses "H:MM" or "HH:MM" and returns the zero-padded form with minutes after midnight.
func normalizeClock(value string) (string, int, error) {
	minutes, err := models.ParseClock(strings.TrimSpace(value))
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), minutes, nil
}

func uniqueOrInternal(err error, conflict, internal string) error {
	if _, ok := database.UniqueViolation(err); ok {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
