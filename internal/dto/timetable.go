package dto

// TimetableExportRequest selects the resource timetable to render.
type TimetableExportRequest struct {
	Resource  string `form:"resource" validate:"required,oneof=instructor classroom group"`
	ID        string `form:"id" validate:"required"`
	QuarterID string `form:"quarterId" validate:"required"`
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// TimetableFile is a rendered timetable ready to be streamed.
type TimetableFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
