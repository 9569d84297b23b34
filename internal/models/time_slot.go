package models

import (
	"fmt"
	"time"
)

// Day is a seeded weekday reference row. IDs follow ISO order, Monday = 1.
type Day struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// TimeBlock is a clock range expressed as zero-padded "HH:MM" strings.
type TimeBlock struct {
	ID        string    `db:"id" json:"id"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DurationMinutes returns end - start in minutes, or 0 when either bound is malformed.
func (b TimeBlock) DurationMinutes() int {
	start, err := ParseClock(b.StartTime)
	if err != nil {
		return 0
	}
	end, err := ParseClock(b.EndTime)
	if err != nil {
		return 0
	}
	return end - start
}

// DurationHours returns the block length in hours.
func (b TimeBlock) DurationHours() float64 {
	return float64(b.DurationMinutes()) / 60
}

// Label renders the block as "HH:MM-HH:MM".
func (b TimeBlock) Label() string {
	return fmt.Sprintf("%s-%s", b.StartTime, b.EndTime)
}

// DayTimeBlock is a schedulable slot: one day paired with one time block.
type DayTimeBlock struct {
	ID          string    `db:"id" json:"id"`
	DayID       int       `db:"day_id" json:"day_id"`
	TimeBlockID string    `db:"time_block_id" json:"time_block_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DayTimeBlockDetail resolves the day and time block of a slot.
type DayTimeBlockDetail struct {
	DayTimeBlock
	DayName   string `db:"day_name" json:"day_name"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// TimeBlock returns the resolved block of the slot.
func (d DayTimeBlockDetail) TimeBlock() TimeBlock {
	return TimeBlock{ID: d.TimeBlockID, StartTime: d.StartTime, EndTime: d.EndTime}
}

// DurationHours is the slot length in hours.
func (d DayTimeBlockDetail) DurationHours() float64 {
	return d.TimeBlock().DurationHours()
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}
