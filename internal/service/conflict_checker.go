package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type slotConflictFinder interface {
	FindSlotConflict(ctx context.Context, exec sqlx.ExtContext, dim models.ConflictType, resourceID, slotID, quarterID, excludeID string) (*models.ClassScheduleDetail, error)
}

type instructorReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
}

type classroomReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error)
}

type studentGroupReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error)
}

// conflictOrder fixes the order conflicts are reported in.
var conflictOrder = []models.ConflictType{
	models.ConflictInstructor,
	models.ConflictClassroom,
	models.ConflictGroup,
}

const unknownResourceName = "Unknown"

// ConflictChecker looks up existing schedules that hold a candidate's
// instructor, classroom or group in the same slot and quarter.
type ConflictChecker struct {
	schedules   slotConflictFinder
	instructors instructorReader
	classrooms  classroomReader
	groups      studentGroupReader
	logger      *zap.Logger
}

// NewConflictChecker constructs a conflict checker.
func NewConflictChecker(schedules slotConflictFinder, instructors instructorReader, classrooms classroomReader, groups studentGroupReader, logger *zap.Logger) *ConflictChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictChecker{schedules: schedules, instructors: instructors, classrooms: classrooms, groups: groups, logger: logger}
}

// Check runs all three lookups and returns every conflict found. exec may be
// a transaction so the lookups observe the caller's snapshot.
func (c *ConflictChecker) Check(ctx context.Context, exec sqlx.ExtContext, candidate models.ScheduleCandidate, excludeID string) ([]models.ScheduleConflict, error) {
	conflicts := make([]models.ScheduleConflict, 0)
	for _, dim := range conflictOrder {
		resourceID := resourceOf(candidate, dim)
		existing, err := c.schedules.FindSlotConflict(ctx, exec, dim, resourceID, candidate.DayTimeBlockID, candidate.QuarterID, excludeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to check %s conflicts", dim))
		}
		conflicts = append(conflicts, models.ScheduleConflict{
			ConflictType:       dim,
			ResourceID:         resourceID,
			ResourceName:       c.resourceName(ctx, exec, dim, resourceID),
			ExistingScheduleID: existing.ID,
			ExistingSubject:    existing.Subject,
			DayName:            existing.DayName,
			TimeBlockLabel:     existing.TimeBlockLabel(),
		})
	}
	return conflicts, nil
}

func (c *ConflictChecker) resourceName(ctx context.Context, exec sqlx.ExtContext, dim models.ConflictType, id string) string {
	var (
		name string
		err  error
	)
	switch dim {
	case models.ConflictInstructor:
		var instructor *models.Instructor
		if instructor, err = c.instructors.FindByID(ctx, exec, id); err == nil {
			name = instructor.FullName()
		}
	case models.ConflictClassroom:
		var classroom *models.Classroom
		if classroom, err = c.classrooms.FindByID(ctx, exec, id); err == nil {
			name = classroom.DisplayName()
		}
	case models.ConflictGroup:
		var group *models.StudentGroup
		if group, err = c.groups.FindByID(ctx, exec, id); err == nil {
			name = group.DisplayName()
		}
	}
	if err != nil {
		if !missingRow(err) {
			c.logger.Warn("resolve conflict resource name", zap.String("type", string(dim)), zap.String("id", id), zap.Error(err))
		}
		return unknownResourceName
	}
	if name == "" {
		return unknownResourceName
	}
	return name
}

func resourceOf(candidate models.ScheduleCandidate, dim models.ConflictType) string {
	switch dim {
	case models.ConflictInstructor:
		return candidate.InstructorID
	case models.ConflictClassroom:
		return candidate.ClassroomID
	case models.ConflictGroup:
		return candidate.GroupID
	}
	return ""
}
