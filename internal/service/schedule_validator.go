package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type candidateConflictChecker interface {
	Check(ctx context.Context, exec sqlx.ExtContext, candidate models.ScheduleCandidate, excludeID string) ([]models.ScheduleConflict, error)
}

type quarterReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error)
}

type slotReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DayTimeBlockDetail, error)
}

type scheduleRowReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassSchedule, error)
}

const (
	overloadWarningPrefix = "Instructor "
	capacityWarningPrefix = "Classroom capacity"
)

// ScheduleValidator produces the verdict for a candidate assignment. It never writes.
type ScheduleValidator struct {
	checker     candidateConflictChecker
	quarters    quarterReader
	slots       slotReader
	groups      studentGroupReader
	instructors instructorReader
	classrooms  classroomReader
	schedules   scheduleRowReader
	metrics     *MetricsService
	logger      *zap.Logger
}

// ScheduleValidatorDeps groups the readers a validator resolves candidates with.
type ScheduleValidatorDeps struct {
	Checker     candidateConflictChecker
	Quarters    quarterReader
	Slots       slotReader
	Groups      studentGroupReader
	Instructors instructorReader
	Classrooms  classroomReader
	Schedules   scheduleRowReader
}

// NewScheduleValidator constructs a validator.
func NewScheduleValidator(deps ScheduleValidatorDeps, metrics *MetricsService, logger *zap.Logger) *ScheduleValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleValidator{
		checker:     deps.Checker,
		quarters:    deps.Quarters,
		slots:       deps.Slots,
		groups:      deps.Groups,
		instructors: deps.Instructors,
		classrooms:  deps.Classrooms,
		schedules:   deps.Schedules,
		metrics:     metrics,
		logger:      logger,
	}
}

// previousAssignment is the stored state of a schedule being edited.
type previousAssignment struct {
	instructorID string
	hours        float64
}

// scheduleEvaluation carries a verdict plus the references resolved to reach it.
type scheduleEvaluation struct {
	validation *models.ScheduleValidation
	slot       *models.DayTimeBlockDetail
	instructor *models.Instructor
}

// Validate checks a candidate against stored schedules. When excludeID names
// an existing schedule it is treated as the row being edited.
func (v *ScheduleValidator) Validate(ctx context.Context, candidate models.ScheduleCandidate, excludeID string) (*models.ScheduleValidation, error) {
	var previous *previousAssignment
	if excludeID != "" {
		existing, err := v.schedules.FindByID(ctx, nil, excludeID)
		if err != nil {
			if missingRow(err) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class schedule not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class schedule")
		}
		slot, err := v.loadSlot(ctx, nil, existing.DayTimeBlockID)
		if err != nil {
			return nil, err
		}
		previous = &previousAssignment{instructorID: existing.InstructorID, hours: slot.DurationHours()}
	}

	eval, err := v.evaluate(ctx, nil, candidate, excludeID, previous)
	if err != nil {
		return nil, err
	}
	return eval.validation, nil
}

func (v *ScheduleValidator) evaluate(ctx context.Context, exec sqlx.ExtContext, candidate models.ScheduleCandidate, excludeID string, previous *previousAssignment) (*scheduleEvaluation, error) {
	start := time.Now()

	if _, err := v.quarters.FindByID(ctx, exec, candidate.QuarterID); err != nil {
		return nil, notFoundOrInternal(err, "quarter not found", "failed to load quarter")
	}
	slot, err := v.loadSlot(ctx, exec, candidate.DayTimeBlockID)
	if err != nil {
		return nil, err
	}
	group, err := v.groups.FindByID(ctx, exec, candidate.GroupID)
	if err != nil {
		return nil, notFoundOrInternal(err, "student group not found", "failed to load student group")
	}
	instructor, err := v.instructors.FindByID(ctx, exec, candidate.InstructorID)
	if err != nil {
		return nil, notFoundOrInternal(err, "instructor not found", "failed to load instructor")
	}
	classroom, err := v.classrooms.FindByID(ctx, exec, candidate.ClassroomID)
	if err != nil {
		return nil, notFoundOrInternal(err, "classroom not found", "failed to load classroom")
	}

	conflicts, err := v.checker.Check(ctx, exec, candidate, excludeID)
	if err != nil {
		return nil, err
	}

	result := &models.ScheduleValidation{
		IsValid:   len(conflicts) == 0,
		Conflicts: conflicts,
		Warnings:  []string{},
	}

	if limit, ok := instructor.ContractLimit(); ok {
		projected := instructor.HourCount + slot.DurationHours()
		if previous != nil && previous.instructorID == instructor.ID {
			projected -= previous.hours
		}
		projected = roundHours(projected)
		if projected > float64(limit) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s%s will exceed hour limit (%.1f/%d hours)", overloadWarningPrefix, instructor.FullName(), projected, limit))
		}
	}
	if classroom.Capacity < group.Capacity {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s (%d) is less than group size (%d)", capacityWarningPrefix, classroom.Capacity, group.Capacity))
	}

	v.metrics.RecordValidation(result, time.Since(start))
	v.logger.Debug("schedule candidate evaluated",
		zap.String("instructor_id", candidate.InstructorID),
		zap.String("day_time_block_id", candidate.DayTimeBlockID),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("warnings", len(result.Warnings)))

	return &scheduleEvaluation{validation: result, slot: slot, instructor: instructor}, nil
}

func (v *ScheduleValidator) loadSlot(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DayTimeBlockDetail, error) {
	slot, err := v.slots.FindByID(ctx, exec, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "day time block not found", "failed to load day time block")
	}
	return slot, nil
}

// describeResource loads an instructor, classroom or group and returns its display name.
func (v *ScheduleValidator) describeResource(ctx context.Context, dim models.ConflictType, id string) (string, error) {
	switch dim {
	case models.ConflictInstructor:
		instructor, err := v.instructors.FindByID(ctx, nil, id)
		if err != nil {
			return "", notFoundOrInternal(err, "instructor not found", "failed to load instructor")
		}
		return instructor.FullName(), nil
	case models.ConflictClassroom:
		classroom, err := v.classrooms.FindByID(ctx, nil, id)
		if err != nil {
			return "", notFoundOrInternal(err, "classroom not found", "failed to load classroom")
		}
		return classroom.DisplayName(), nil
	case models.ConflictGroup:
		group, err := v.groups.FindByID(ctx, nil, id)
		if err != nil {
			return "", notFoundOrInternal(err, "student group not found", "failed to load student group")
		}
		return group.DisplayName(), nil
	}
	return "", appErrors.Wrap(errUnknownResource, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, fmt.Sprintf("unknown resource type %q", dim))
}

// missingRow treats an id Postgres cannot parse like an id with no row.
func missingRow(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || database.InvalidTextRepresentation(err)
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if missingRow(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func warningKind(warning string) string {
	switch {
	case strings.HasPrefix(warning, capacityWarningPrefix):
		return "capacity"
	case strings.HasPrefix(warning, overloadWarningPrefix):
		return "overload"
	default:
		return "other"
	}
}
