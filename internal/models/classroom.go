package models

import "fmt"

// Classroom is a physical room on a campus.
type Classroom struct {
	ID            string `db:"id" json:"id"`
	RoomNumber    string `db:"room_number" json:"room_number"`
	Capacity      int    `db:"capacity" json:"capacity"`
	CampusID      string `db:"campus_id" json:"campus_id"`
	ClassroomType string `db:"classroom_type" json:"classroom_type"`
}

// DisplayName is used in conflict messages.
func (c Classroom) DisplayName() string {
	return fmt.Sprintf("Room %s", c.RoomNumber)
}
