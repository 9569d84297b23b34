package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// ClassroomRepository reads classroom reference data.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository instantiates a classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error) {
	if exec == nil {
		exec = r.db
	}
	var classroom models.Classroom
	const query = `SELECT id, room_number, capacity, campus_id, classroom_type FROM classrooms WHERE id = $1`
	if err := sqlx.GetContext(ctx, exec, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}
