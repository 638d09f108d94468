package grading

import (
	"fmt"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// ScoreSubmission folds per-question outcomes into a score breakdown and a
// total. Every question of the assignment must have an outcome (essay
// questions awaiting a manual score contribute zero through their outcome),
// and outcomes for question ids outside the assignment are rejected. The
// total is clamped to the assignment's maximum; recomputing on the same
// inputs yields the same result.
func ScoreSubmission(a models.Assignment, outcomes map[string]Outcome) (models.ScoreMap, float64, error) {
	for id := range outcomes {
		if _, ok := a.QuestionByID(id); !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrReference,
				fmt.Sprintf("outcome references question %s not in assignment %s", id, a.ID))
		}
	}

	scores := make(models.ScoreMap, len(a.Questions))
	total := 0.0
	for _, q := range a.Questions {
		out, ok := outcomes[q.ID]
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrReference,
				fmt.Sprintf("question %s has no graded outcome", q.ID))
		}
		scores[q.ID] = out.Score
		total += out.Score
	}

	if total > a.TotalMaxScore {
		total = a.TotalMaxScore
	}
	return scores, total, nil
}
