package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize("stu-1", nil)
	assert.Equal(t, "stu-1", summary.StudentID)
	assert.Equal(t, 0, summary.GradedCount)
	assert.Equal(t, 0.0, summary.OverallPercentage)
}

func TestSummarize(t *testing.T) {
	rows := []models.GradedSubmissionRow{
		{SubmissionID: "sub-1", Status: models.SubmissionStatusGraded, TotalScore: 8, TotalMaxScore: 10},
		{SubmissionID: "sub-2", Status: models.SubmissionStatusReturned, TotalScore: 10, TotalMaxScore: 10},
	}
	summary := Summarize("stu-1", rows)
	assert.Equal(t, 2, summary.GradedCount)
	assert.Equal(t, 18.0, summary.ScoreObtained)
	assert.Equal(t, 20.0, summary.ScoreEligible)
	assert.Equal(t, 90.0, summary.OverallPercentage)
}

func TestSummarizeSkipsSubmitted(t *testing.T) {
	rows := []models.GradedSubmissionRow{
		{SubmissionID: "sub-1", Status: models.SubmissionStatusSubmitted, TotalScore: 5, TotalMaxScore: 10},
		{SubmissionID: "sub-2", Status: models.SubmissionStatusGraded, TotalScore: 7, TotalMaxScore: 10},
	}
	summary := Summarize("stu-1", rows)
	assert.Equal(t, 1, summary.GradedCount)
	assert.Equal(t, 7.0, summary.ScoreObtained)
	assert.Equal(t, 10.0, summary.ScoreEligible)
}

func TestSummarizeOrderIndependent(t *testing.T) {
	rows := []models.GradedSubmissionRow{
		{SubmissionID: "a", Status: models.SubmissionStatusGraded, TotalScore: 3, TotalMaxScore: 5},
		{SubmissionID: "b", Status: models.SubmissionStatusGraded, TotalScore: 4, TotalMaxScore: 5},
		{SubmissionID: "c", Status: models.SubmissionStatusReturned, TotalScore: 5, TotalMaxScore: 5},
	}
	reversed := []models.GradedSubmissionRow{rows[2], rows[1], rows[0]}
	assert.Equal(t, Summarize("stu-1", rows), Summarize("stu-1", reversed))
}

func TestSummarizeRounding(t *testing.T) {
	rows := []models.GradedSubmissionRow{
		{SubmissionID: "a", Status: models.SubmissionStatusGraded, TotalScore: 1, TotalMaxScore: 3},
	}
	summary := Summarize("stu-1", rows)
	assert.Equal(t, 33.33, summary.OverallPercentage)
}
