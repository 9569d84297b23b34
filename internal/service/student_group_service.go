package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type studentGroupStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error)
	CountSchedules(ctx context.Context, id string) (int, error)
	Disable(ctx context.Context, id string) (bool, error)
}

// StudentGroupService owns the one-way disable transition of student groups.
// There is deliberately no enable counterpart.
type StudentGroupService struct {
	repo   studentGroupStore
	logger *zap.Logger
}

// NewStudentGroupService constructs a student group service.
func NewStudentGroupService(repo studentGroupStore, logger *zap.Logger) *StudentGroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentGroupService{repo: repo, logger: logger}
}

// Disable deactivates a group that has no class schedules.
func (s *StudentGroupService) Disable(ctx context.Context, id string) (*models.StudentGroup, error) {
	group, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "student group not found", "failed to load student group")
	}
	if !group.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student group is already disabled")
	}

	count, err := s.repo.CountSchedules(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student group usage")
	}
	if count > 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "student group has class schedules and cannot be disabled")
	}

	changed, err := s.repo.Disable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disable student group")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student group is already disabled")
	}

	group.Active = false
	s.logger.Info("student group disabled", zap.String("group_id", id))
	return group, nil
}
