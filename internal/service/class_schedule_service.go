package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type classScheduleStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassSchedule, error)
	FindDetail(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error
	Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, int, error)
	ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error)
}

type workloadAdjuster interface {
	OnCreate(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error
	OnDelete(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error
	OnReassign(ctx context.Context, exec sqlx.ExtContext, oldInstructorID, newInstructorID string, oldHours, newHours float64) error
	Invalidate(ctx context.Context, instructorIDs ...string)
}

// constraintConflicts maps storage unique constraints onto conflict dimensions.
var constraintConflicts = map[string]models.ConflictType{
	"uq_schedule_conflict_instructor": models.ConflictInstructor,
	"uq_schedule_conflict_classroom":  models.ConflictClassroom,
	"uq_schedule_conflict_group":      models.ConflictGroup,
}

// ClassScheduleServiceConfig tunes the write path.
type ClassScheduleServiceConfig struct {
	WriteTimeout time.Duration
}

// ClassScheduleService is the only writer of class schedules and, through
// the workload tracker, of instructor hour counts.
type ClassScheduleService struct {
	schedules    classScheduleStore
	validator    *ScheduleValidator
	checker      candidateConflictChecker
	workload     workloadAdjuster
	tx           txProvider
	validate     *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewClassScheduleService wires the assignment store.
func NewClassScheduleService(
	schedules classScheduleStore,
	scheduleValidator *ScheduleValidator,
	checker candidateConflictChecker,
	workload workloadAdjuster,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ClassScheduleServiceConfig,
) *ClassScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassScheduleService{
		schedules:    schedules,
		validator:    scheduleValidator,
		checker:      checker,
		workload:     workload,
		tx:           tx,
		validate:     validate,
		metrics:      metrics,
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Validate is the dry-run form of Create and Update.
func (s *ClassScheduleService) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*models.ScheduleValidation, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	return s.validator.Validate(ctx, candidateFromRequest(req.ClassScheduleRequest), req.ExcludeID)
}

// Get returns a schedule with its slot resolved.
func (s *ClassScheduleService) Get(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	detail, err := s.schedules.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "class schedule not found", "failed to load class schedule")
	}
	return detail, nil
}

// List returns schedules matching the filter.
func (s *ClassScheduleService) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class schedules")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListByResource returns the timetable of an instructor, classroom or group,
// optionally restricted to one quarter.
func (s *ClassScheduleService) ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error) {
	if _, err := s.validator.describeResource(ctx, dim, resourceID); err != nil {
		return nil, err
	}
	items, err := s.schedules.ListByResource(ctx, dim, resourceID, quarterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class schedules")
	}
	return items, nil
}

// Create validates and stores a new schedule, adding its hours to the instructor.
func (s *ClassScheduleService) Create(ctx context.Context, req dto.ClassScheduleRequest) (result *models.ClassScheduleResult, err error) {
	defer func() { s.record("create", err) }()

	req.Subject = strings.TrimSpace(req.Subject)
	if err = s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	candidate := candidateFromRequest(req)

	ctx, cancel := s.withWriteTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	eval, err := s.validator.evaluate(ctx, tx, candidate, "", nil)
	if err != nil {
		return nil, err
	}
	if len(eval.validation.Conflicts) > 0 {
		err = conflictError(eval.validation.Conflicts)
		return nil, err
	}

	row := &models.ClassSchedule{
		Subject:        candidate.Subject,
		QuarterID:      candidate.QuarterID,
		DayTimeBlockID: candidate.DayTimeBlockID,
		GroupID:        candidate.GroupID,
		InstructorID:   candidate.InstructorID,
		ClassroomID:    candidate.ClassroomID,
	}
	if err = s.schedules.Create(ctx, tx, row); err != nil {
		err = s.storageError(ctx, err, candidate, "", "failed to create class schedule")
		return nil, err
	}
	if err = s.workload.OnCreate(ctx, tx, row.InstructorID, eval.slot.DurationHours()); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit class schedule")
		return nil, err
	}

	s.workload.Invalidate(ctx, row.InstructorID)
	s.logger.Info("class schedule created",
		zap.String("schedule_id", row.ID),
		zap.String("instructor_id", row.InstructorID),
		zap.String("day_time_block_id", row.DayTimeBlockID),
		zap.String("quarter_id", row.QuarterID))

	return &models.ClassScheduleResult{Schedule: detailOf(*row, eval.slot), Warnings: eval.validation.Warnings}, nil
}

// Update merges the request over a stored schedule, revalidates it excluding
// itself and moves workload hours when the instructor or slot changes.
func (s *ClassScheduleService) Update(ctx context.Context, id string, req dto.UpdateClassScheduleRequest) (result *models.ClassScheduleResult, err error) {
	defer func() { s.record("update", err) }()

	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		req.Subject = &subject
	}
	if err = s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	ctx, cancel := s.withWriteTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.schedules.FindByID(ctx, tx, id)
	if err != nil {
		err = notFoundOrInternal(err, "class schedule not found", "failed to load class schedule")
		return nil, err
	}
	oldSlot, err := s.validator.loadSlot(ctx, tx, existing.DayTimeBlockID)
	if err != nil {
		return nil, err
	}
	previous := &previousAssignment{instructorID: existing.InstructorID, hours: oldSlot.DurationHours()}

	row := mergeSchedule(*existing, req)
	candidate := models.CandidateOf(row)
	eval, err := s.validator.evaluate(ctx, tx, candidate, id, previous)
	if err != nil {
		return nil, err
	}
	if len(eval.validation.Conflicts) > 0 {
		err = conflictError(eval.validation.Conflicts)
		return nil, err
	}

	if err = s.schedules.Update(ctx, tx, &row); err != nil {
		err = s.storageError(ctx, err, candidate, id, "failed to update class schedule")
		return nil, err
	}
	if err = s.workload.OnReassign(ctx, tx, existing.InstructorID, row.InstructorID, previous.hours, eval.slot.DurationHours()); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit class schedule")
		return nil, err
	}

	s.workload.Invalidate(ctx, existing.InstructorID, row.InstructorID)
	s.logger.Info("class schedule updated",
		zap.String("schedule_id", row.ID),
		zap.String("previous_instructor_id", existing.InstructorID),
		zap.String("instructor_id", row.InstructorID))

	return &models.ClassScheduleResult{Schedule: detailOf(row, eval.slot), Warnings: eval.validation.Warnings}, nil
}

// Delete removes a schedule and releases its hours from the instructor.
func (s *ClassScheduleService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.record("delete", err) }()

	ctx, cancel := s.withWriteTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.schedules.FindByID(ctx, tx, id)
	if err != nil {
		err = notFoundOrInternal(err, "class schedule not found", "failed to load class schedule")
		return err
	}
	slot, err := s.validator.loadSlot(ctx, tx, existing.DayTimeBlockID)
	if err != nil {
		return err
	}
	if err = s.schedules.Delete(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class schedule")
		return err
	}
	if err = s.workload.OnDelete(ctx, tx, existing.InstructorID, slot.DurationHours()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit class schedule deletion")
		return err
	}

	s.workload.Invalidate(ctx, existing.InstructorID)
	s.logger.Info("class schedule deleted", zap.String("schedule_id", id), zap.String("instructor_id", existing.InstructorID))
	return nil
}

func (s *ClassScheduleService) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	return tx, nil
}

func (s *ClassScheduleService) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.writeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.writeTimeout)
}

// storageError turns a unique violation lost to a concurrent writer into a
// typed conflict. The conflicting row is looked up outside the aborted
// transaction to name it.
func (s *ClassScheduleService) storageError(ctx context.Context, err error, candidate models.ScheduleCandidate, excludeID, message string) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
	dim, known := constraintConflicts[constraint]
	if !known {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "class schedule already exists")
	}

	s.logger.Warn("class schedule write lost a concurrent race", zap.String("constraint", constraint))
	if s.checker != nil {
		if conflicts, checkErr := s.checker.Check(ctx, nil, candidate, excludeID); checkErr == nil && len(conflicts) > 0 {
			return conflictError(conflicts)
		}
	}
	domainErr := &models.ScheduleConflictError{
		Type:    dim,
		Message: fmt.Sprintf("%s conflict: the selected slot was taken by a concurrent assignment", conflictLabel(dim)),
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
}

func (s *ClassScheduleService) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if appErrors.FromError(err).Code == appErrors.ErrConflict.Code {
			outcome = "conflict"
		}
	}
	s.metrics.RecordScheduleOperation(operation, outcome)
}

func conflictError(conflicts []models.ScheduleConflict) error {
	first := conflicts[0]
	domainErr := &models.ScheduleConflictError{
		Type:      first.ConflictType,
		Message:   fmt.Sprintf("%s conflict: %s already has '%s' at this time", conflictLabel(first.ConflictType), first.ResourceName, first.ExistingSubject),
		Conflicts: conflicts,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
}

func conflictLabel(dim models.ConflictType) string {
	label := string(dim)
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func candidateFromRequest(req dto.ClassScheduleRequest) models.ScheduleCandidate {
	return models.ScheduleCandidate{
		Subject:        strings.TrimSpace(req.Subject),
		QuarterID:      req.QuarterID,
		DayTimeBlockID: req.DayTimeBlockID,
		GroupID:        req.GroupID,
		InstructorID:   req.InstructorID,
		ClassroomID:    req.ClassroomID,
	}
}

func mergeSchedule(existing models.ClassSchedule, req dto.UpdateClassScheduleRequest) models.ClassSchedule {
	merged := existing
	if req.Subject != nil {
		merged.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.QuarterID != nil {
		merged.QuarterID = *req.QuarterID
	}
	if req.DayTimeBlockID != nil {
		merged.DayTimeBlockID = *req.DayTimeBlockID
	}
	if req.GroupID != nil {
		merged.GroupID = *req.GroupID
	}
	if req.InstructorID != nil {
		merged.InstructorID = *req.InstructorID
	}
	if req.ClassroomID != nil {
		merged.ClassroomID = *req.ClassroomID
	}
	return merged
}

func detailOf(row models.ClassSchedule, slot *models.DayTimeBlockDetail) models.ClassScheduleDetail {
	return models.ClassScheduleDetail{
		ClassSchedule: row,
		DayID:         slot.DayID,
		DayName:       slot.DayName,
		StartTime:     slot.StartTime,
		EndTime:       slot.EndTime,
	}
}

var errUnknownResource = errors.New("unknown resource type")
