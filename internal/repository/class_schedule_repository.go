package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

// ClassScheduleRepository persists class schedules and answers slot occupancy queries.
type ClassScheduleRepository struct {
	db *sqlx.DB
}

// NewClassScheduleRepository instantiates a class schedule repository.
func NewClassScheduleRepository(db *sqlx.DB) *ClassScheduleRepository {
	return &ClassScheduleRepository{db: db}
}

func (r *ClassScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const scheduleDetailSelect = `SELECT cs.id, cs.subject, cs.quarter_id, cs.day_time_block_id, cs.group_id, cs.instructor_id, cs.classroom_id, cs.created_at, cs.updated_at,
	dtb.day_id, d.name AS day_name, tb.start_time, tb.end_time
FROM class_schedules cs
JOIN day_time_blocks dtb ON dtb.id = cs.day_time_block_id
JOIN days d ON d.id = dtb.day_id
JOIN time_blocks tb ON tb.id = dtb.time_block_id`

var conflictColumns = map[models.ConflictType]string{
	models.ConflictInstructor: "cs.instructor_id",
	models.ConflictClassroom:  "cs.classroom_id",
	models.ConflictGroup:      "cs.group_id",
}

// FindByID loads a bare schedule row.
func (r *ClassScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassSchedule, error) {
	var schedule models.ClassSchedule
	const query = `SELECT id, subject, quarter_id, day_time_block_id, group_id, instructor_id, classroom_id, created_at, updated_at FROM class_schedules WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindDetail loads a schedule with its slot resolved.
func (r *ClassScheduleRepository) FindDetail(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	var detail models.ClassScheduleDetail
	if err := r.db.GetContext(ctx, &detail, scheduleDetailSelect+` WHERE cs.id = $1`, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindSlotConflict returns the first schedule holding the resource in the slot
// and quarter, ignoring excludeID. sql.ErrNoRows means the resource is free.
func (r *ClassScheduleRepository) FindSlotConflict(ctx context.Context, exec sqlx.ExtContext, dim models.ConflictType, resourceID, slotID, quarterID, excludeID string) (*models.ClassScheduleDetail, error) {
	column, ok := conflictColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown conflict dimension %q", dim)
	}
	query := scheduleDetailSelect + ` WHERE ` + column + ` = $1 AND cs.day_time_block_id = $2 AND cs.quarter_id = $3`
	args := []interface{}{resourceID, slotID, quarterID}
	if excludeID != "" {
		query += ` AND cs.id <> $4`
		args = append(args, excludeID)
	}
	query += ` ORDER BY cs.created_at ASC LIMIT 1`

	var detail models.ClassScheduleDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a schedule.
func (r *ClassScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO class_schedules (id, subject, quarter_id, day_time_block_id, group_id, instructor_id, classroom_id, created_at, updated_at)
VALUES (:id, :subject, :quarter_id, :day_time_block_id, :group_id, :instructor_id, :classroom_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("create class schedule: %w", err)
	}
	return nil
}

// Update rewrites every mutable field of a schedule.
func (r *ClassScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET subject = :subject, quarter_id = :quarter_id, day_time_block_id = :day_time_block_id,
group_id = :group_id, instructor_id = :instructor_id, classroom_id = :classroom_id, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("update class schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule.
func (r *ClassScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class schedule: %w", err)
	}
	return nil
}

// List returns schedules matching the filter with pagination.
func (r *ClassScheduleRepository) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, int, error) {
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	var (
		conditions []string
		args       []interface{}
	)
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.Subject != "" {
		add("cs.subject ILIKE $%d", "%"+filter.Subject+"%")
	}
	if filter.InstructorID != "" {
		add("cs.instructor_id = $%d", filter.InstructorID)
	}
	if filter.GroupID != "" {
		add("cs.group_id = $%d", filter.GroupID)
	}
	if filter.ClassroomID != "" {
		add("cs.classroom_id = $%d", filter.ClassroomID)
	}
	if filter.QuarterID != "" {
		add("cs.quarter_id = $%d", filter.QuarterID)
	}
	if filter.DayID > 0 {
		add("dtb.day_id = $%d", filter.DayID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("%s%s ORDER BY dtb.day_id ASC, tb.start_time ASC, cs.subject ASC LIMIT %d OFFSET %d", scheduleDetailSelect, where, size, offset)
	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class schedules: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM class_schedules cs JOIN day_time_blocks dtb ON dtb.id = cs.day_time_block_id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class schedules: %w", err)
	}
	return schedules, total, nil
}

// ListByResource returns every schedule of a resource, optionally restricted to a quarter,
// ordered by day then start time.
func (r *ClassScheduleRepository) ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error) {
	column, ok := conflictColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown resource dimension %q", dim)
	}
	query := scheduleDetailSelect + ` WHERE ` + column + ` = $1`
	args := []interface{}{resourceID}
	if quarterID != "" {
		query += ` AND cs.quarter_id = $2`
		args = append(args, quarterID)
	}
	query += ` ORDER BY dtb.day_id ASC, tb.start_time ASC`

	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list %s schedules: %w", dim, err)
	}
	return schedules, nil
}
