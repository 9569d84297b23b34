package models

import "time"

// TelemetrySnapshot aggregates process counters for operational endpoints.
type TelemetrySnapshot struct {
	RequestsTotal           uint64    `json:"requests_total"`
	ScheduleOperationsTotal uint64    `json:"schedule_operations_total"`
	ScheduleConflictsTotal  uint64    `json:"schedule_conflicts_total"`
	CacheHitRatio           float64   `json:"cache_hit_ratio"`
	Goroutines              int       `json:"goroutines"`
	GeneratedAt             time.Time `json:"generated_at"`
}
