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

// TimeBlockRepository persists clock ranges used to build slots.
type TimeBlockRepository struct {
	db *sqlx.DB
}

// NewTimeBlockRepository instantiates a time block repository.
func NewTimeBlockRepository(db *sqlx.DB) *TimeBlockRepository {
	return &TimeBlockRepository{db: db}
}

const timeBlockColumns = `id, start_time, end_time, created_at, updated_at`

// List returns time blocks ordered by start time.
func (r *TimeBlockRepository) List(ctx context.Context) ([]models.TimeBlock, error) {
	var blocks []models.TimeBlock
	query := `SELECT ` + timeBlockColumns + ` FROM time_blocks ORDER BY start_time ASC, end_time ASC`
	if err := r.db.SelectContext(ctx, &blocks, query); err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	return blocks, nil
}

// FindByID loads a time block by id.
func (r *TimeBlockRepository) FindByID(ctx context.Context, id string) (*models.TimeBlock, error) {
	var block models.TimeBlock
	if err := r.db.GetContext(ctx, &block, `SELECT `+timeBlockColumns+` FROM time_blocks WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &block, nil
}

// ExistsByTimes reports whether another block has the same start and end.
func (r *TimeBlockRepository) ExistsByTimes(ctx context.Context, start, end, excludeID string) (bool, error) {
	query := `SELECT 1 FROM time_blocks WHERE start_time = $1 AND end_time = $2`
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
		return false, fmt.Errorf("check time block uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a time block.
func (r *TimeBlockRepository) Create(ctx context.Context, block *models.TimeBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	block.CreatedAt = now
	block.UpdatedAt = now

	const query = `INSERT INTO time_blocks (id, start_time, end_time, created_at, updated_at) VALUES (:id, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create time block: %w", err)
	}
	return nil
}

// Update modifies a time block's range.
func (r *TimeBlockRepository) Update(ctx context.Context, block *models.TimeBlock) error {
	block.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_blocks SET start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("update time block: %w", err)
	}
	return nil
}

// Delete removes a time block.
func (r *TimeBlockRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM time_blocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	return nil
}

// CountSlots returns the number of slots built on the block.
func (r *TimeBlockRepository) CountSlots(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM day_time_blocks WHERE time_block_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count time block slots: %w", err)
	}
	return count, nil
}
