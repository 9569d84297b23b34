package dto

// CreateQuarterRequest defines a new academic quarter. Dates use YYYY-MM-DD.
type CreateQuarterRequest struct {
	Name      string `json:"name" validate:"omitempty,max=50"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// UpdateQuarterRequest carries optional quarter changes.
type UpdateQuarterRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=50"`
	StartDate *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}
