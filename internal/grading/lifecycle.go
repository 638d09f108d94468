package grading

import (
	"fmt"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

// Transition validates a submission status change. The workflow is
// submitted → graded → returned, with returned → graded as the only backward
// edge (re-grading after revision). Moving out of submitted additionally
// requires every essay question to carry a manual score; essaysResolved
// reports that condition. A total score is only final once the submission has
// left the submitted state.
func Transition(current, next models.SubmissionStatus, essaysResolved bool) error {
	switch {
	case current == models.SubmissionStatusSubmitted && next == models.SubmissionStatusGraded:
		if !essaysResolved {
			return appErrors.Clone(appErrors.ErrReference, "essay questions are missing manual scores")
		}
		return nil
	case current == models.SubmissionStatusGraded && next == models.SubmissionStatusReturned:
		return nil
	case current == models.SubmissionStatusReturned && next == models.SubmissionStatusGraded:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move submission from %s to %s", current, next))
	}
}
