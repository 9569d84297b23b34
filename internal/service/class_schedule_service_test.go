package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/dto"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

func algebraRequest() dto.ClassScheduleRequest {
	return dto.ClassScheduleRequest{
		Subject:        "Algebra",
		QuarterID:      "Q1",
		DayTimeBlockID: "S1",
		GroupID:        "G1",
		InstructorID:   "I1",
		ClassroomID:    "C1",
	}
}

func candidateOf(req dto.ClassScheduleRequest) models.ScheduleCandidate {
	return candidateFromRequest(req)
}

func (f *schedulingFixture) mustCreate(t *testing.T, req dto.ClassScheduleRequest) *models.ClassScheduleResult {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)
	return result
}

func strPtr(v string) *string { return &v }

func TestClassScheduleServiceCreateCleanAssignment(t *testing.T) {
	f := newSchedulingFixture(t)

	result := f.mustCreate(t, algebraRequest())

	assert.NotEmpty(t, result.Schedule.ID)
	assert.Equal(t, "Monday", result.Schedule.DayName)
	assert.Equal(t, "08:00-10:00", result.Schedule.TimeBlockLabel())
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 2.0, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceCreateInstructorCollision(t *testing.T) {
	f := newSchedulingFixture(t)
	f.mustCreate(t, algebraRequest())

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.service.Create(context.Background(), dto.ClassScheduleRequest{
		Subject:        "Geometry",
		QuarterID:      "Q1",
		DayTimeBlockID: "S1",
		GroupID:        "G2",
		InstructorID:   "I1",
		ClassroomID:    "C2",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Instructor conflict: Ada Lovelace already has 'Algebra' at this time", appErr.Message)

	var conflictErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictInstructor, conflictErr.Type)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "Algebra", conflictErr.Conflicts[0].ExistingSubject)
	assert.Equal(t, "Monday", conflictErr.Conflicts[0].DayName)

	assert.Equal(t, 2.0, f.db.hours("I1"), "failed create must not touch workload")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceValidateAfterCreateReportsEveryDimension(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())

	validation, err := f.validator.Validate(context.Background(), candidateOf(algebraRequest()), "")
	require.NoError(t, err)

	assert.False(t, validation.IsValid)
	require.Len(t, validation.Conflicts, 3)
	assert.Equal(t, models.ConflictInstructor, validation.Conflicts[0].ConflictType)
	assert.Equal(t, models.ConflictClassroom, validation.Conflicts[1].ConflictType)
	assert.Equal(t, models.ConflictGroup, validation.Conflicts[2].ConflictType)
	for _, conflict := range validation.Conflicts {
		assert.Equal(t, created.Schedule.ID, conflict.ExistingScheduleID)
	}
	assert.Equal(t, "Room 101", validation.Conflicts[1].ResourceName)
	assert.Equal(t, "Group 1", validation.Conflicts[2].ResourceName)

	again, err := f.validator.Validate(context.Background(), candidateOf(algebraRequest()), "")
	require.NoError(t, err)
	assert.Equal(t, validation, again)
}

func TestClassScheduleServiceSameSlotOtherQuarterIsFree(t *testing.T) {
	f := newSchedulingFixture(t)
	f.mustCreate(t, algebraRequest())

	req := algebraRequest()
	req.QuarterID = "Q2"
	validation, err := f.validator.Validate(context.Background(), candidateOf(req), "")
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
}

func TestClassScheduleServiceOverloadWarningDoesNotBlock(t *testing.T) {
	f := newSchedulingFixture(t)

	req := algebraRequest()
	req.InstructorID = "I2"
	req.DayTimeBlockID = "S2"

	validation, err := f.service.Validate(context.Background(), dto.ValidateScheduleRequest{ClassScheduleRequest: req})
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
	assert.Empty(t, validation.Conflicts)
	assert.Equal(t, []string{"Instructor Grace Hopper will exceed hour limit (41.0/40 hours)"}, validation.Warnings)

	result := f.mustCreate(t, req)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, 41.0, f.db.hours("I2"))
}

func TestClassScheduleServiceCapacityWarning(t *testing.T) {
	f := newSchedulingFixture(t)

	req := algebraRequest()
	req.ClassroomID = "C3"
	validation, err := f.validator.Validate(context.Background(), candidateOf(req), "")
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
	assert.Equal(t, []string{"Classroom capacity (20) is less than group size (25)"}, validation.Warnings)
}

func TestClassScheduleServiceValidateUnknownReferences(t *testing.T) {
	f := newSchedulingFixture(t)

	cases := map[string]func(*dto.ClassScheduleRequest){
		"quarter":    func(r *dto.ClassScheduleRequest) { r.QuarterID = "missing" },
		"slot":       func(r *dto.ClassScheduleRequest) { r.DayTimeBlockID = "missing" },
		"group":      func(r *dto.ClassScheduleRequest) { r.GroupID = "missing" },
		"instructor": func(r *dto.ClassScheduleRequest) { r.InstructorID = "missing" },
		"classroom":  func(r *dto.ClassScheduleRequest) { r.ClassroomID = "missing" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := algebraRequest()
			mutate(&req)
			_, err := f.validator.Validate(context.Background(), candidateOf(req), "")
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestClassScheduleServiceCreateRejectsInvalidPayload(t *testing.T) {
	f := newSchedulingFixture(t)

	req := algebraRequest()
	req.Subject = ""
	_, err := f.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceRejectsBlankSubject(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	for _, subject := range []string{"   ", "\t\n", " A "} {
		req := algebraRequest()
		req.Subject = subject
		_, err := f.service.Create(ctx, req)
		require.Error(t, err, "subject %q", subject)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

		_, err = f.service.Validate(ctx, dto.ValidateScheduleRequest{ClassScheduleRequest: req})
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, f.db.schedules)
	assert.Equal(t, 0.0, f.db.hours("I1"))

	created := f.mustCreate(t, algebraRequest())
	_, err := f.service.Update(ctx, created.Schedule.ID, dto.UpdateClassScheduleRequest{Subject: strPtr("  ")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	stored, err := f.service.Get(ctx, created.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", stored.Subject)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceTrimsSubject(t *testing.T) {
	f := newSchedulingFixture(t)

	req := algebraRequest()
	req.Subject = "  Algebra II  "
	result := f.mustCreate(t, req)
	assert.Equal(t, "Algebra II", result.Schedule.Subject)
}

func TestClassScheduleServiceDeleteRestoresWorkload(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())
	require.Equal(t, 2.0, f.db.hours("I1"))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.service.Delete(context.Background(), created.Schedule.ID))

	assert.Equal(t, 0.0, f.db.hours("I1"))
	_, err := f.service.Get(context.Background(), created.Schedule.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceDeleteMissing(t *testing.T) {
	f := newSchedulingFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.service.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceReassignTransfersLoad(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.service.Update(context.Background(), created.Schedule.ID, dto.UpdateClassScheduleRequest{InstructorID: strPtr("I3")})
	require.NoError(t, err)

	assert.Equal(t, "I3", result.Schedule.InstructorID)
	assert.Equal(t, "Algebra", result.Schedule.Subject)
	assert.Equal(t, 0.0, f.db.hours("I1"))
	assert.Equal(t, 2.0, f.db.hours("I3"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceUpdateNetAdjustsSameInstructor(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.service.Update(context.Background(), created.Schedule.ID, dto.UpdateClassScheduleRequest{DayTimeBlockID: strPtr("S3")})
	require.NoError(t, err)

	assert.Equal(t, "Tuesday", result.Schedule.DayName)
	assert.Equal(t, 1.5, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceUpdateExcludesItself(t *testing.T) {
	f := newSchedulingFixture(t)
	created := f.mustCreate(t, algebraRequest())

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.service.Update(context.Background(), created.Schedule.ID, dto.UpdateClassScheduleRequest{Subject: strPtr("Linear Algebra")})
	require.NoError(t, err)

	assert.Equal(t, "Linear Algebra", result.Schedule.Subject)
	assert.Equal(t, 2.0, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceUpdateIntoOccupiedSlot(t *testing.T) {
	f := newSchedulingFixture(t)
	f.mustCreate(t, algebraRequest())
	other := algebraRequest()
	other.Subject = "Biology"
	other.DayTimeBlockID = "S2"
	other.GroupID = "G2"
	other.ClassroomID = "C2"
	created := f.mustCreate(t, other)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.service.Update(context.Background(), created.Schedule.ID, dto.UpdateClassScheduleRequest{DayTimeBlockID: strPtr("S1")})
	require.Error(t, err)

	var conflictErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictInstructor, conflictErr.Type)
	assert.Equal(t, 4.0, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceOverloadProjectionOnUpdate(t *testing.T) {
	f := newSchedulingFixture(t)
	req := algebraRequest()
	req.InstructorID = "I2"
	created := f.mustCreate(t, req)
	require.Equal(t, 41.0, f.db.hours("I2"))

	validation, err := f.validator.Validate(context.Background(), models.CandidateOf(created.Schedule.ClassSchedule), created.Schedule.ID)
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
	assert.Equal(t, []string{"Instructor Grace Hopper will exceed hour limit (41.0/40 hours)"}, validation.Warnings)

	moved := models.CandidateOf(created.Schedule.ClassSchedule)
	moved.DayTimeBlockID = "S3"
	validation, err = f.validator.Validate(context.Background(), moved, created.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Instructor Grace Hopper will exceed hour limit (40.5/40 hours)"}, validation.Warnings)
}

func TestClassScheduleServiceConcurrentWriterSurfacesConflict(t *testing.T) {
	f := newSchedulingFixture(t)
	f.mustCreate(t, algebraRequest())

	f.db.hiddenLookups = len(conflictOrder)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	req := algebraRequest()
	req.Subject = "Geometry"
	_, err := f.service.Create(context.Background(), req)
	require.Error(t, err)

	var conflictErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictInstructor, conflictErr.Type)
	assert.Equal(t, "Instructor conflict: Ada Lovelace already has 'Algebra' at this time", conflictErr.Message)
	assert.Len(t, f.db.schedules, 1)
	assert.Equal(t, 2.0, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceWorkloadConservation(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, algebraRequest())
	second := algebraRequest()
	second.Subject = "Calculus"
	second.DayTimeBlockID = "S2"
	secondResult := f.mustCreate(t, second)
	third := algebraRequest()
	third.Subject = "Statistics"
	third.DayTimeBlockID = "S3"
	f.mustCreate(t, third)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.service.Create(ctx, algebraRequest())
	require.Error(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.service.Update(ctx, secondResult.Schedule.ID, dto.UpdateClassScheduleRequest{InstructorID: strPtr("I3")})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.service.Delete(ctx, first.Schedule.ID))

	expected := map[string]float64{}
	for _, row := range f.db.schedules {
		expected[row.InstructorID] += f.db.slots[row.DayTimeBlockID].DurationHours()
	}
	for id := range f.db.instructors {
		if id == "I2" {
			continue
		}
		assert.InDelta(t, expected[id], f.db.hours(id), 0.001, "instructor %s", id)
	}

	rows := make([]models.ClassSchedule, 0, len(f.db.schedules))
	for _, row := range f.db.schedules {
		rows = append(rows, row)
	}
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			a, b := rows[i], rows[j]
			if a.DayTimeBlockID != b.DayTimeBlockID || a.QuarterID != b.QuarterID {
				continue
			}
			assert.NotEqual(t, a.InstructorID, b.InstructorID)
			assert.NotEqual(t, a.ClassroomID, b.ClassroomID)
			assert.NotEqual(t, a.GroupID, b.GroupID)
		}
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceListByResource(t *testing.T) {
	f := newSchedulingFixture(t)
	later := algebraRequest()
	later.Subject = "Statistics"
	later.DayTimeBlockID = "S3"
	f.mustCreate(t, later)
	f.mustCreate(t, algebraRequest())

	items, err := f.service.ListByResource(context.Background(), models.ConflictInstructor, "I1", "Q1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Monday", items[0].DayName)
	assert.Equal(t, "Tuesday", items[1].DayName)

	_, err = f.service.ListByResource(context.Background(), models.ConflictClassroom, "missing", "")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassScheduleServiceInvalidatesCachedWorkload(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	summary, err := f.tracker.Summary(ctx, "I1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.TotalHours)
	require.True(t, f.cache.has(workloadCacheKey("I1")))

	f.mustCreate(t, algebraRequest())
	assert.False(t, f.cache.has(workloadCacheKey("I1")))

	summary, err = f.tracker.Summary(ctx, "I1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, summary.TotalHours)
}

func TestClassScheduleServiceMalformedIDsAreNotFound(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "malformed")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err = f.service.Delete(ctx, "malformed")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = f.tracker.Summary(ctx, "malformed")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	cases := map[string]func(*dto.ClassScheduleRequest){
		"quarter":    func(r *dto.ClassScheduleRequest) { r.QuarterID = "malformed" },
		"slot":       func(r *dto.ClassScheduleRequest) { r.DayTimeBlockID = "malformed" },
		"group":      func(r *dto.ClassScheduleRequest) { r.GroupID = "malformed" },
		"instructor": func(r *dto.ClassScheduleRequest) { r.InstructorID = "malformed" },
		"classroom":  func(r *dto.ClassScheduleRequest) { r.ClassroomID = "malformed" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := algebraRequest()
			mutate(&req)
			_, err := f.service.Validate(ctx, dto.ValidateScheduleRequest{ClassScheduleRequest: req})
			assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
		})
	}

	_, err = f.service.Validate(ctx, dto.ValidateScheduleRequest{ClassScheduleRequest: algebraRequest(), ExcludeID: "malformed"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	req := algebraRequest()
	req.QuarterID = "malformed"
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.service.Create(ctx, req)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.db.schedules)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestClassScheduleServiceWorkloadFailureRollsBack(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()
	created := f.mustCreate(t, algebraRequest())

	_, err := f.tracker.Summary(ctx, "I1")
	require.NoError(t, err)
	require.True(t, f.cache.has(workloadCacheKey("I1")))

	workload := &faultyWorkload{WorkloadTracker: f.tracker, fail: appErrors.Clone(appErrors.ErrInternal, "failed to lock instructor workload")}
	svc := f.serviceWith(workload, time.Second)

	other := algebraRequest()
	other.Subject = "Geometry"
	other.DayTimeBlockID = "S2"
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = svc.Create(ctx, other)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = svc.Update(ctx, created.Schedule.ID, dto.UpdateClassScheduleRequest{InstructorID: strPtr("I3")})
	require.Error(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err = svc.Delete(ctx, created.Schedule.ID)
	require.Error(t, err)

	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, workload.invalidated)
	assert.True(t, f.cache.has(workloadCacheKey("I1")))
	assert.Equal(t, 2.0, f.db.hours("I1"))
	assert.Equal(t, 0.0, f.db.hours("I3"))
}

func TestClassScheduleServiceCommitFailureSkipsInvalidation(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx := context.Background()

	_, err := f.tracker.Summary(ctx, "I1")
	require.NoError(t, err)

	workload := &faultyWorkload{WorkloadTracker: f.tracker}
	svc := f.serviceWith(workload, time.Second)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(errors.New("connection reset by peer"))
	_, err = svc.Create(ctx, algebraRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, workload.invalidated)
	assert.True(t, f.cache.has(workloadCacheKey("I1")))
}

func TestClassScheduleServiceWriteTimeoutRollsBack(t *testing.T) {
	f := newSchedulingFixture(t)
	workload := &faultyWorkload{WorkloadTracker: f.tracker, stall: true}
	svc := f.serviceWith(workload, 20*time.Millisecond)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := svc.Create(context.Background(), algebraRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The rollback may be issued by database/sql when the deadline fires.
	assert.Eventually(t, func() bool { return f.mock.ExpectationsWereMet() == nil }, time.Second, 10*time.Millisecond)
	assert.Empty(t, workload.invalidated)
	assert.Equal(t, 0.0, f.db.hours("I1"))
}

func TestClassScheduleServiceCancelledContextWritesNothing(t *testing.T) {
	f := newSchedulingFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Create(ctx, algebraRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.db.schedules)
	assert.Equal(t, 0.0, f.db.hours("I1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
