package dto

// ClassScheduleRequest carries a full candidate assignment.
type ClassScheduleRequest struct {
	Subject        string `json:"subject" validate:"required,min=2,max=200"`
	QuarterID      string `json:"quarterId" validate:"required"`
	DayTimeBlockID string `json:"dayTimeBlockId" validate:"required"`
	GroupID        string `json:"groupId" validate:"required"`
	InstructorID   string `json:"instructorId" validate:"required"`
	ClassroomID    string `json:"classroomId" validate:"required"`
}

// ValidateScheduleRequest is a dry-run candidate. ExcludeID names the schedule being edited.
type ValidateScheduleRequest struct {
	ClassScheduleRequest
	ExcludeID string `json:"excludeId"`
}

// UpdateClassScheduleRequest carries the fields to merge over an existing schedule.
type UpdateClassScheduleRequest struct {
	Subject        *string `json:"subject" validate:"omitempty,min=2,max=200"`
	QuarterID      *string `json:"quarterId" validate:"omitempty,min=1"`
	DayTimeBlockID *string `json:"dayTimeBlockId" validate:"omitempty,min=1"`
	GroupID        *string `json:"groupId" validate:"omitempty,min=1"`
	InstructorID   *string `json:"instructorId" validate:"omitempty,min=1"`
	ClassroomID    *string `json:"classroomId" validate:"omitempty,min=1"`
}

// ResourceScheduleQuery narrows per-resource schedule listings.
type ResourceScheduleQuery struct {
	QuarterID string `form:"quarterId"`
}
