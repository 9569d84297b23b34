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

// DayTimeBlockRepository persists schedulable slots.
type DayTimeBlockRepository struct {
	db *sqlx.DB
}

// NewDayTimeBlockRepository instantiates a slot repository.
func NewDayTimeBlockRepository(db *sqlx.DB) *DayTimeBlockRepository {
	return &DayTimeBlockRepository{db: db}
}

func (r *DayTimeBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotDetailSelect = `SELECT dtb.id, dtb.day_id, dtb.time_block_id, dtb.created_at, d.name AS day_name, tb.start_time, tb.end_time
FROM day_time_blocks dtb
JOIN days d ON d.id = dtb.day_id
JOIN time_blocks tb ON tb.id = dtb.time_block_id`

// FindByID loads a slot with its day and time block resolved.
func (r *DayTimeBlockRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DayTimeBlockDetail, error) {
	var slot models.DayTimeBlockDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, slotDetailSelect+` WHERE dtb.id = $1`, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns every slot ordered by day then start time.
func (r *DayTimeBlockRepository) List(ctx context.Context) ([]models.DayTimeBlockDetail, error) {
	var slots []models.DayTimeBlockDetail
	if err := r.db.SelectContext(ctx, &slots, slotDetailSelect+` ORDER BY dtb.day_id ASC, tb.start_time ASC`); err != nil {
		return nil, fmt.Errorf("list day time blocks: %w", err)
	}
	return slots, nil
}

// Exists reports whether the (day, time block) pair is already a slot.
func (r *DayTimeBlockRepository) Exists(ctx context.Context, dayID int, timeBlockID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM day_time_blocks WHERE day_id = $1 AND time_block_id = $2 LIMIT 1`, dayID, timeBlockID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check day time block uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a slot.
func (r *DayTimeBlockRepository) Create(ctx context.Context, slot *models.DayTimeBlock) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO day_time_blocks (id, day_id, time_block_id, created_at) VALUES (:id, :day_id, :time_block_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create day time block: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *DayTimeBlockRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM day_time_blocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete day time block: %w", err)
	}
	return nil
}

// CountSchedules returns the number of class schedules using the slot.
func (r *DayTimeBlockRepository) CountSchedules(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_schedules WHERE day_time_block_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count day time block schedules: %w", err)
	}
	return count, nil
}
