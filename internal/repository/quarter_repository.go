package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// QuarterRepository handles persistence for academic quarters.
type QuarterRepository struct {
	db *sqlx.DB
}

// NewQuarterRepository instantiates a quarter repository.
func NewQuarterRepository(db *sqlx.DB) *QuarterRepository {
	return &QuarterRepository{db: db}
}

func (r *QuarterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const quarterColumns = `id, name, start_date, end_date, created_at, updated_at`

// List returns quarters, most recent first.
func (r *QuarterRepository) List(ctx context.Context, filter models.QuarterFilter) ([]models.Quarter, int, error) {
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM quarters ORDER BY start_date DESC LIMIT %d OFFSET %d", quarterColumns, size, offset)
	var quarters []models.Quarter
	if err := r.db.SelectContext(ctx, &quarters, query); err != nil {
		return nil, 0, fmt.Errorf("list quarters: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM quarters`); err != nil {
		return nil, 0, fmt.Errorf("count quarters: %w", err)
	}
	return quarters, total, nil
}

// FindByID loads a quarter by identifier.
func (r *QuarterRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error) {
	var quarter models.Quarter
	if err := sqlx.GetContext(ctx, r.exec(exec), &quarter, `SELECT `+quarterColumns+` FROM quarters WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &quarter, nil
}

// ExistsByDates reports whether a quarter with the exact same range exists.
func (r *QuarterRepository) ExistsByDates(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	query := `SELECT 1 FROM quarters WHERE start_date = $1 AND end_date = $2`
	args := []interface{}{start, end}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+` LIMIT 1`, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check quarter uniqueness: %w", err)
	}
	return true, nil
}

// FindOverlapping returns quarters whose closed range intersects [start, end].
func (r *QuarterRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]models.Quarter, error) {
	query := `SELECT ` + quarterColumns + ` FROM quarters WHERE start_date <= $2 AND $1 <= end_date`
	args := []interface{}{start, end}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	var quarters []models.Quarter
	if err := r.db.SelectContext(ctx, &quarters, query+` ORDER BY start_date ASC`, args...); err != nil {
		return nil, fmt.Errorf("find overlapping quarters: %w", err)
	}
	return quarters, nil
}

// FindCurrent returns the first quarter containing the given day.
func (r *QuarterRepository) FindCurrent(ctx context.Context, day time.Time) (*models.Quarter, error) {
	var quarter models.Quarter
	query := `SELECT ` + quarterColumns + ` FROM quarters WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date ASC LIMIT 1`
	if err := r.db.GetContext(ctx, &quarter, query, day); err != nil {
		return nil, err
	}
	return &quarter, nil
}

// Create inserts a quarter.
func (r *QuarterRepository) Create(ctx context.Context, quarter *models.Quarter) error {
	if quarter.ID == "" {
		quarter.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quarter.CreatedAt = now
	quarter.UpdatedAt = now

	const query = `INSERT INTO quarters (id, name, start_date, end_date, created_at, updated_at) VALUES (:id, :name, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quarter); err != nil {
		return fmt.Errorf("create quarter: %w", err)
	}
	return nil
}

// Update modifies a quarter.
func (r *QuarterRepository) Update(ctx context.Context, quarter *models.Quarter) error {
	quarter.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quarters SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quarter); err != nil {
		return fmt.Errorf("update quarter: %w", err)
	}
	return nil
}

// Delete removes a quarter.
func (r *QuarterRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quarters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quarter: %w", err)
	}
	return nil
}

// CountSchedules returns the number of class schedules referencing the quarter.
func (r *QuarterRepository) CountSchedules(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_schedules WHERE quarter_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count quarter schedules: %w", err)
	}
	return count, nil
}
