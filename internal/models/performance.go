package models

import "time"

// PerformanceSummary is a derived per-student rollup of graded submissions.
// It has no identity of its own and is recomputed on demand.
type PerformanceSummary struct {
	StudentID         string  `json:"student_id"`
	GradedCount       int     `json:"graded_count"`
	ScoreObtained     float64 `json:"score_obtained"`
	ScoreEligible     float64 `json:"score_eligible"`
	OverallPercentage float64 `json:"overall_percentage"`
}

// StudentPerformanceRow enriches a summary with roster info for the teacher view.
type StudentPerformanceRow struct {
	StudentID         string  `db:"student_id" json:"student_id"`
	StudentName       string  `db:"student_name" json:"student_name"`
	Email             string  `db:"email" json:"email"`
	GradedCount       int     `json:"graded_count"`
	ScoreObtained     float64 `json:"score_obtained"`
	ScoreEligible     float64 `json:"score_eligible"`
	OverallPercentage float64 `json:"overall_percentage"`
}

// SystemMetrics is a lightweight snapshot of service-level counters exposed
// alongside the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SubmissionsGraded        uint64    `json:"submissions_graded"`
	QuestionsAutoGraded      uint64    `json:"questions_auto_graded"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
