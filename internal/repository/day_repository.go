package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// DayRepository reads the seeded weekday table.
type DayRepository struct {
	db *sqlx.DB
}

// NewDayRepository instantiates a day repository.
func NewDayRepository(db *sqlx.DB) *DayRepository {
	return &DayRepository{db: db}
}

// List returns all days ordered Monday first.
func (r *DayRepository) List(ctx context.Context) ([]models.Day, error) {
	var days []models.Day
	if err := r.db.SelectContext(ctx, &days, `SELECT id, name FROM days ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// FindByID loads a day by id.
func (r *DayRepository) FindByID(ctx context.Context, id int) (*models.Day, error) {
	var day models.Day
	if err := r.db.GetContext(ctx, &day, `SELECT id, name FROM days WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &day, nil
}
