package models

// WorkloadStatus classifies an instructor's utilisation of their contract.
type WorkloadStatus string

const (
	WorkloadNoLimit    WorkloadStatus = "NO_LIMIT"
	WorkloadOverloaded WorkloadStatus = "OVERLOADED"
	WorkloadNearLimit  WorkloadStatus = "NEAR_LIMIT"
	WorkloadHighLoad   WorkloadStatus = "HIGH_LOAD"
	WorkloadMediumLoad WorkloadStatus = "MEDIUM_LOAD"
	WorkloadLowLoad    WorkloadStatus = "LOW_LOAD"
)

// WorkloadSummary reports committed hours against the contract limit.
// AvailableHours and UtilizationPercentage are set only when a limit exists.
type WorkloadSummary struct {
	InstructorID          string         `json:"instructor_id"`
	FullName              string         `json:"full_name"`
	TotalHours            float64        `json:"total_hours"`
	ContractLimit         *int           `json:"contract_limit,omitempty"`
	AvailableHours        *float64       `json:"available_hours,omitempty"`
	UtilizationPercentage *float64       `json:"utilization_percentage,omitempty"`
	Status                WorkloadStatus `json:"status"`
}
