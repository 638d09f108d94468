package grading

import (
	"math"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// Summarize rolls graded submissions up into one student's performance
// summary. Submissions still in the submitted state carry only provisional
// scores and are skipped. Summation is order-independent, so partial rollups
// computed elsewhere may be combined by addition.
func Summarize(studentID string, rows []models.GradedSubmissionRow) models.PerformanceSummary {
	summary := models.PerformanceSummary{StudentID: studentID}
	for _, row := range rows {
		if row.Status == models.SubmissionStatusSubmitted {
			continue
		}
		summary.GradedCount++
		summary.ScoreObtained += row.TotalScore
		summary.ScoreEligible += row.TotalMaxScore
	}
	if summary.ScoreEligible > 0 {
		summary.OverallPercentage = round2(100 * summary.ScoreObtained / summary.ScoreEligible)
	}
	return summary
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
