package models

import (
	"strings"
	"time"
)

// Contract carries the contractual weekly hour limit of an instructor.
type Contract struct {
	ID           string `db:"id" json:"id"`
	ContractType string `db:"contract_type" json:"contract_type"`
	HourLimit    *int   `db:"hour_limit" json:"hour_limit,omitempty"`
}

// Instructor is a teaching staff member. HourCount is derived from the
// instructor's class schedules and is only written by the workload tracker.
type Instructor struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Email      string    `db:"email" json:"email"`
	HourCount  float64   `db:"hour_count" json:"hour_count"`
	ContractID *string   `db:"contract_id" json:"contract_id,omitempty"`
	HourLimit  *int      `db:"hour_limit" json:"hour_limit,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last names.
func (i Instructor) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// ContractLimit returns the hour limit when the instructor has a contract with
// a positive limit.
func (i Instructor) ContractLimit() (int, bool) {
	if i.HourLimit == nil || *i.HourLimit <= 0 {
		return 0, false
	}
	return *i.HourLimit, true
}
