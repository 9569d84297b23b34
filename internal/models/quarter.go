package models

import "time"

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// Quarter is an academic term bounded by inclusive start and end dates.
type Quarter struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Contains reports whether day falls inside the quarter, bounds included.
func (q Quarter) Contains(day time.Time) bool {
	d := TruncateDate(day)
	return !d.Before(TruncateDate(q.StartDate)) && !d.After(TruncateDate(q.EndDate))
}

// Overlaps reports whether the closed ranges [q.start, q.end] and [start, end] intersect.
func (q Quarter) Overlaps(start, end time.Time) bool {
	return !TruncateDate(q.StartDate).After(TruncateDate(end)) && !TruncateDate(start).After(TruncateDate(q.EndDate))
}

// QuarterFilter defines list options for quarters.
type QuarterFilter struct {
	Page     int
	PageSize int
}

// TruncateDate drops the clock component, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
