package models

import (
	"fmt"
	"time"
)

// StudentGroup is a cohort of students. Active only transitions to false.
type StudentGroup struct {
	ID          string    `db:"id" json:"id"`
	GroupNumber int       `db:"group_number" json:"group_number"`
	Capacity    int       `db:"capacity" json:"capacity"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Active      bool      `db:"active" json:"active"`
}

// DisplayName is used in conflict messages.
func (g StudentGroup) DisplayName() string {
	return fmt.Sprintf("Group %d", g.GroupNumber)
}
