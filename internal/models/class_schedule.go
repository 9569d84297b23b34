package models

import "time"

// ClassSchedule binds a subject to a quarter, slot, group, instructor and classroom.
type ClassSchedule struct {
	ID             string    `db:"id" json:"id"`
	Subject        string    `db:"subject" json:"subject"`
	QuarterID      string    `db:"quarter_id" json:"quarter_id"`
	DayTimeBlockID string    `db:"day_time_block_id" json:"day_time_block_id"`
	GroupID        string    `db:"group_id" json:"group_id"`
	InstructorID   string    `db:"instructor_id" json:"instructor_id"`
	ClassroomID    string    `db:"classroom_id" json:"classroom_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClassScheduleDetail enriches a schedule with its slot description.
type ClassScheduleDetail struct {
	ClassSchedule
	DayID     int    `db:"day_id" json:"day_id"`
	DayName   string `db:"day_name" json:"day_name"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// TimeBlockLabel renders the slot range as "HH:MM-HH:MM".
func (d ClassScheduleDetail) TimeBlockLabel() string {
	return TimeBlock{StartTime: d.StartTime, EndTime: d.EndTime}.Label()
}

// ClassScheduleFilter describes list query options.
type ClassScheduleFilter struct {
	Subject      string
	InstructorID string
	GroupID      string
	ClassroomID  string
	QuarterID    string
	DayID        int
	Page         int
	PageSize     int
}

// ScheduleCandidate is a proposed assignment awaiting validation.
type ScheduleCandidate struct {
	Subject        string `json:"subject"`
	QuarterID      string `json:"quarter_id"`
	DayTimeBlockID string `json:"day_time_block_id"`
	GroupID        string `json:"group_id"`
	InstructorID   string `json:"instructor_id"`
	ClassroomID    string `json:"classroom_id"`
}

// CandidateOf returns the candidate form of a stored schedule.
func CandidateOf(s ClassSchedule) ScheduleCandidate {
	return ScheduleCandidate{
		Subject:        s.Subject,
		QuarterID:      s.QuarterID,
		DayTimeBlockID: s.DayTimeBlockID,
		GroupID:        s.GroupID,
		InstructorID:   s.InstructorID,
		ClassroomID:    s.ClassroomID,
	}
}

// ConflictType names the exclusivity dimension a conflict violates.
type ConflictType string

const (
	ConflictInstructor ConflictType = "instructor"
	ConflictClassroom  ConflictType = "classroom"
	ConflictGroup      ConflictType = "group"
)

// ScheduleConflict describes an existing schedule colliding with a candidate.
type ScheduleConflict struct {
	ConflictType       ConflictType `json:"conflict_type"`
	ResourceID         string       `json:"resource_id"`
	ResourceName       string       `json:"resource_name"`
	ExistingScheduleID string       `json:"existing_schedule_id"`
	ExistingSubject    string       `json:"existing_subject"`
	DayName            string       `json:"day_name"`
	TimeBlockLabel     string       `json:"time_block_label"`
}

// ScheduleValidation is the verdict for a candidate assignment.
type ScheduleValidation struct {
	IsValid   bool               `json:"is_valid"`
	Conflicts []ScheduleConflict `json:"conflicts"`
	Warnings  []string           `json:"warnings"`
}

// ScheduleConflictError is returned when a write collides with existing schedules.
type ScheduleConflictError struct {
	Type      ConflictType       `json:"type"`
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ClassScheduleResult is a committed schedule with the advisory warnings raised while validating it.
type ClassScheduleResult struct {
	Schedule ClassScheduleDetail `json:"schedule"`
	Warnings []string            `json:"warnings"`
}
