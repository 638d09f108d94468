package grading

import (
	"fmt"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// Outcome is the result of grading a single question.
type Outcome struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	AutoGraded bool    `json:"auto_graded"`
	// NeedsManual is set for essay questions that still lack a teacher score.
	// Such outcomes carry a zero score until a manual score arrives.
	NeedsManual bool `json:"needs_manual"`
}

// GradeQuestion applies the per-type grading policy to one question. Objective
// types (multiple choice, true/false, short text) award full marks on a match
// and zero otherwise. Essay questions take the supplied manual score, which
// must lie within [0, maxScore]. The answer key must carry a non-empty
// canonical answer for every non-essay question.
func GradeQuestion(q models.Question, key models.CorrectAnswer, submitted string, manual *float64) (Outcome, error) {
	out := Outcome{QuestionID: q.ID, MaxScore: q.MaxScore}

	if !q.Type.Valid() {
		return out, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown question type %q", q.Type))
	}
	if q.MaxScore <= 0 {
		return out, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %s has non-positive max score", q.ID))
	}

	if q.Type == models.QuestionTypeEssay {
		if manual == nil {
			out.NeedsManual = true
			return out, nil
		}
		if *manual < 0 || *manual > q.MaxScore {
			return out, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("manual score %.2f for question %s outside [0, %.2f]", *manual, q.ID, q.MaxScore))
		}
		out.Score = *manual
		return out, nil
	}

	if Normalize(key.CorrectAnswer) == "" {
		return out, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %s is missing a correct answer", q.ID))
	}

	out.AutoGraded = true
	if Match(submitted, key.CorrectAnswer, key.AcceptedVariations) {
		out.Score = q.MaxScore
	}
	return out, nil
}
