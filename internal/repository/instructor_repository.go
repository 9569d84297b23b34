package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// InstructorRepository reads instructors and writes their derived hour count.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository instantiates an instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

func (r *InstructorRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const instructorSelect = `SELECT i.id, i.first_name, i.last_name, i.email, i.hour_count, i.contract_id, c.hour_limit, i.active, i.created_at, i.updated_at
FROM instructors i
LEFT JOIN contracts c ON c.id = i.contract_id`

// FindByID loads an instructor with its contract hour limit.
func (r *InstructorRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := sqlx.GetContext(ctx, r.exec(exec), &instructor, instructorSelect+` WHERE i.id = $1`, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindByIDForUpdate loads an instructor and locks its row for the rest of the transaction.
func (r *InstructorRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := sqlx.GetContext(ctx, r.exec(exec), &instructor, instructorSelect+` WHERE i.id = $1 FOR UPDATE OF i`, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// UpdateHourCount stores a new hour count, rounded to the column's two decimals.
func (r *InstructorRepository) UpdateHourCount(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	rounded := math.Round(hours*100) / 100
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE instructors SET hour_count = $1, updated_at = $2 WHERE id = $3`, rounded, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update instructor hour count: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update instructor hour count: instructor %s not found", id)
	}
	return nil
}
