package dto

// TimeBlockRequest creates or replaces a clock range.
type TimeBlockRequest struct {
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// CreateSlotRequest pairs a weekday with a time block.
type CreateSlotRequest struct {
	DayID       int    `json:"dayId" validate:"required,min=1,max=7"`
	TimeBlockID string `json:"timeBlockId" validate:"required"`
}
