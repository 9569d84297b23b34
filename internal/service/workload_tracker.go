package service

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type instructorWorkloadStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
	UpdateHourCount(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error
}

// WorkloadTracker keeps instructor hour counts in step with their class
// schedules. Adjustments must run inside the transaction that writes the
// schedule row.
type WorkloadTracker struct {
	instructors instructorWorkloadStore
	cache       *CacheService
	logger      *zap.Logger
}

// NewWorkloadTracker constructs a workload tracker. cache may be nil.
func NewWorkloadTracker(instructors instructorWorkloadStore, cache *CacheService, logger *zap.Logger) *WorkloadTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadTracker{instructors: instructors, cache: cache, logger: logger}
}

// OnCreate adds the slot hours of a new schedule.
func (t *WorkloadTracker) OnCreate(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error {
	return t.adjust(ctx, exec, instructorID, hours)
}

// OnDelete subtracts the slot hours of a removed schedule.
func (t *WorkloadTracker) OnDelete(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error {
	return t.adjust(ctx, exec, instructorID, -hours)
}

// OnReassign moves hours between instructors or net-adjusts a single
// instructor whose slot duration changed.
func (t *WorkloadTracker) OnReassign(ctx context.Context, exec sqlx.ExtContext, oldInstructorID, newInstructorID string, oldHours, newHours float64) error {
	if oldInstructorID == newInstructorID {
		delta := newHours - oldHours
		if delta == 0 {
			return nil
		}
		return t.adjust(ctx, exec, newInstructorID, delta)
	}

	// Rows are locked in id order so concurrent swaps cannot deadlock.
	if oldInstructorID < newInstructorID {
		if err := t.adjust(ctx, exec, oldInstructorID, -oldHours); err != nil {
			return err
		}
		return t.adjust(ctx, exec, newInstructorID, newHours)
	}
	if err := t.adjust(ctx, exec, newInstructorID, newHours); err != nil {
		return err
	}
	return t.adjust(ctx, exec, oldInstructorID, -oldHours)
}

func (t *WorkloadTracker) adjust(ctx context.Context, exec sqlx.ExtContext, instructorID string, delta float64) error {
	instructor, err := t.instructors.FindByIDForUpdate(ctx, exec, instructorID)
	if err != nil {
		if missingRow(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock instructor workload")
	}

	next := roundHours(instructor.HourCount + delta)
	if next < 0 {
		t.logger.Warn("instructor hour count would go negative, clamping",
			zap.String("instructor_id", instructorID),
			zap.Float64("current", instructor.HourCount),
			zap.Float64("delta", delta))
		next = 0
	}

	if err := t.instructors.UpdateHourCount(ctx, exec, instructorID, next); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor workload")
	}
	t.logger.Debug("instructor workload adjusted",
		zap.String("instructor_id", instructorID),
		zap.Float64("delta", delta),
		zap.Float64("hour_count", next))
	return nil
}

// Summary reports an instructor's committed hours against their contract.
// Results may be served from cache and can trail an in-flight write.
func (t *WorkloadTracker) Summary(ctx context.Context, instructorID string) (*models.WorkloadSummary, error) {
	key := workloadCacheKey(instructorID)
	var cached models.WorkloadSummary
	if hit, _ := t.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	instructor, err := t.instructors.FindByID(ctx, nil, instructorID)
	if err != nil {
		if missingRow(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}

	summary := BuildWorkloadSummary(*instructor)
	_ = t.cache.Set(ctx, key, summary, 0)
	return &summary, nil
}

// Invalidate drops cached summaries of the given instructors.
func (t *WorkloadTracker) Invalidate(ctx context.Context, instructorIDs ...string) {
	keys := make([]string, 0, len(instructorIDs))
	seen := make(map[string]struct{}, len(instructorIDs))
	for _, id := range instructorIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, workloadCacheKey(id))
	}
	_ = t.cache.Invalidate(ctx, keys...)
}

// BuildWorkloadSummary derives utilisation figures and status from an instructor row.
func BuildWorkloadSummary(instructor models.Instructor) models.WorkloadSummary {
	summary := models.WorkloadSummary{
		InstructorID: instructor.ID,
		FullName:     instructor.FullName(),
		TotalHours:   roundHours(instructor.HourCount),
		Status:       models.WorkloadNoLimit,
	}
	if instructor.HourLimit != nil {
		limit := *instructor.HourLimit
		summary.ContractLimit = &limit
	}

	limit, ok := instructor.ContractLimit()
	if !ok {
		return summary
	}
	available := roundHours(float64(limit) - instructor.HourCount)
	ratio := instructor.HourCount / float64(limit) * 100
	utilization := roundHours(ratio)
	summary.AvailableHours = &available
	summary.UtilizationPercentage = &utilization
	// Thresholds apply to the exact ratio; only the reported figure is rounded.
	summary.Status = ClassifyWorkload(ratio)
	return summary
}

// ClassifyWorkload maps a utilisation percentage onto a status.
func ClassifyWorkload(utilization float64) models.WorkloadStatus {
	switch {
	case utilization >= 100:
		return models.WorkloadOverloaded
	case utilization >= 90:
		return models.WorkloadNearLimit
	case utilization >= 70:
		return models.WorkloadHighLoad
	case utilization >= 50:
		return models.WorkloadMediumLoad
	default:
		return models.WorkloadLowLoad
	}
}

func workloadCacheKey(instructorID string) string {
	return "workload:instructor:" + instructorID
}

func roundHours(v float64) float64 {
	return math.Round(v*100) / 100
}
