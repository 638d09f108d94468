package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

func twoQuestionAssignment() models.Assignment {
	return models.Assignment{
		ID:            "asg-1",
		TotalMaxScore: 20,
		Questions: []models.Question{
			{ID: "q1", AssignmentID: "asg-1", Type: models.QuestionTypeMultipleChoice, MaxScore: 10},
			{ID: "q2", AssignmentID: "asg-1", Type: models.QuestionTypeEssay, MaxScore: 10},
		},
	}
}

func TestScoreSubmissionAllCorrect(t *testing.T) {
	a := twoQuestionAssignment()
	outcomes := map[string]Outcome{
		"q1": {QuestionID: "q1", Score: 10, MaxScore: 10, AutoGraded: true},
		"q2": {QuestionID: "q2", Score: 10, MaxScore: 10},
	}

	scores, total, err := ScoreSubmission(a, outcomes)
	require.NoError(t, err)
	assert.Equal(t, a.TotalMaxScore, total)
	assert.Equal(t, models.ScoreMap{"q1": 10, "q2": 10}, scores)
}

func TestScoreSubmissionPendingEssayContributesZero(t *testing.T) {
	a := twoQuestionAssignment()
	outcomes := map[string]Outcome{
		"q1": {QuestionID: "q1", Score: 10, MaxScore: 10, AutoGraded: true},
		"q2": {QuestionID: "q2", Score: 0, MaxScore: 10, NeedsManual: true},
	}

	scores, total, err := ScoreSubmission(a, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 10.0, total)
	assert.Equal(t, 0.0, scores["q2"])
}

func TestScoreSubmissionMissingOutcome(t *testing.T) {
	a := twoQuestionAssignment()
	_, _, err := ScoreSubmission(a, map[string]Outcome{
		"q1": {QuestionID: "q1", Score: 10, MaxScore: 10},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
}

func TestScoreSubmissionUnknownQuestion(t *testing.T) {
	a := twoQuestionAssignment()
	_, _, err := ScoreSubmission(a, map[string]Outcome{
		"q1":    {QuestionID: "q1", Score: 10, MaxScore: 10},
		"q2":    {QuestionID: "q2", Score: 5, MaxScore: 10},
		"ghost": {QuestionID: "ghost", Score: 1, MaxScore: 1},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
}

func TestScoreSubmissionClampsTotal(t *testing.T) {
	a := twoQuestionAssignment()
	outcomes := map[string]Outcome{
		"q1": {QuestionID: "q1", Score: 15, MaxScore: 10},
		"q2": {QuestionID: "q2", Score: 10, MaxScore: 10},
	}
	_, total, err := ScoreSubmission(a, outcomes)
	require.NoError(t, err)
	assert.Equal(t, a.TotalMaxScore, total)
}

func TestScoreSubmissionIdempotent(t *testing.T) {
	a := twoQuestionAssignment()
	outcomes := map[string]Outcome{
		"q1": {QuestionID: "q1", Score: 10, MaxScore: 10},
		"q2": {QuestionID: "q2", Score: 8, MaxScore: 10},
	}
	scores1, total1, err := ScoreSubmission(a, outcomes)
	require.NoError(t, err)
	scores2, total2, err := ScoreSubmission(a, outcomes)
	require.NoError(t, err)
	assert.Equal(t, total1, total2)
	assert.Equal(t, scores1, scores2)
}
