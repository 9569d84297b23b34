package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// StudentGroupRepository reads student groups and applies the disable transition.
type StudentGroupRepository struct {
	db *sqlx.DB
}

// NewStudentGroupRepository instantiates a student group repository.
func NewStudentGroupRepository(db *sqlx.DB) *StudentGroupRepository {
	return &StudentGroupRepository{db: db}
}

// FindByID loads a group by id.
func (r *StudentGroupRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error) {
	if exec == nil {
		exec = r.db
	}
	var group models.StudentGroup
	const query = `SELECT id, group_number, capacity, start_date, end_date, active FROM student_groups WHERE id = $1`
	if err := sqlx.GetContext(ctx, exec, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// CountSchedules returns the number of class schedules referencing the group.
func (r *StudentGroupRepository) CountSchedules(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_schedules WHERE group_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count group schedules: %w", err)
	}
	return count, nil
}

// Disable marks an active group inactive. It reports false when no active row matched.
func (r *StudentGroupRepository) Disable(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE student_groups SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return false, fmt.Errorf("disable student group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("disable student group: %w", err)
	}
	return affected > 0, nil
}
