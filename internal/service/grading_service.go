package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/grading"
	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type submissionRepo interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	ApplyGrading(ctx context.Context, id string, scores models.ScoreMap, total float64, feedback *string, expected, next models.SubmissionStatus) error
	SetStatus(ctx context.Context, id string, expected, next models.SubmissionStatus, feedback *string) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

type summaryCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type gradingMetrics interface {
	RecordSubmissionGraded(autoGradedQuestions int)
}

// SubmitRequest carries a student's answers keyed by question id.
type SubmitRequest struct {
	AssignmentID string            `json:"-"`
	StudentID    string            `json:"-" validate:"required"`
	Answers      map[string]string `json:"answers" validate:"required"`
}

// GradeRequest carries a teacher's manual essay scores and feedback for one
// grading pass over a submission.
type GradeRequest struct {
	SubmissionID string             `json:"-"`
	TeacherID    string             `json:"-"`
	ManualScores map[string]float64 `json:"manual_scores"`
	Feedback     *string            `json:"feedback"`
}

// ReturnRequest sends a graded submission back to the student.
type ReturnRequest struct {
	SubmissionID string  `json:"-"`
	TeacherID    string  `json:"-"`
	Feedback     *string `json:"feedback"`
}

// GradingService drives submissions through the evaluation engine and the
// grading workflow. The engine itself is pure; this service loads the
// snapshots it operates on and persists its decisions.
type GradingService struct {
	submissions submissionRepo
	assignments assignmentReader
	enrollments enrollmentChecker
	cache       summaryCacheInvalidator
	metrics     gradingMetrics
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(submissions submissionRepo, assignments assignmentReader, enrollments enrollmentChecker, cache summaryCacheInvalidator, metrics gradingMetrics, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		submissions: submissions,
		assignments: assignments,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Submit records a student's answers for an assignment. Answer keys are
// checked against the assignment's question set before anything is stored.
func (s *GradingService) Submit(ctx context.Context, req SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	for questionID := range req.Answers {
		if _, ok := assignment.QuestionByID(questionID); !ok {
			return nil, appErrors.Clone(appErrors.ErrReference,
				fmt.Sprintf("answer references question %s not in assignment %s", questionID, assignment.ID))
		}
	}

	if s.enrollments != nil {
		enrolled, err := s.enrollments.IsEnrolled(ctx, req.StudentID, assignment.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this course")
		}
	}

	submission := &models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    req.StudentID,
		Answers:      models.AnswerMap(req.Answers),
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return submission, nil
}

// Grade evaluates every question of a submission and commits the result.
// Objective questions are auto-graded; essay questions take their scores from
// the request (or from a previous grading pass recorded on the submission).
// The submission moves submitted→graded, or returned→graded when re-grading.
// Re-running with the same inputs is idempotent up to the optimistic status
// check in the store.
func (s *GradingService) Grade(ctx context.Context, req GradeRequest) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if req.TeacherID != "" && assignment.TeacherID != req.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}

	manual := s.collectManualScores(submission, req.ManualScores)

	outcomes := make(map[string]grading.Outcome, len(assignment.Questions))
	essaysResolved := true
	autoGraded := 0
	for _, q := range assignment.Questions {
		var key models.CorrectAnswer
		if q.Answer != nil {
			key = *q.Answer
		}
		var manualScore *float64
		if v, ok := manual[q.ID]; ok {
			score := v
			manualScore = &score
		}
		outcome, err := grading.GradeQuestion(q, key, submission.Answers[q.ID], manualScore)
		if err != nil {
			return nil, err
		}
		if outcome.NeedsManual {
			essaysResolved = false
		}
		if outcome.AutoGraded {
			autoGraded++
		}
		outcomes[q.ID] = outcome
	}

	scores, total, err := grading.ScoreSubmission(*assignment, outcomes)
	if err != nil {
		return nil, err
	}

	if err := grading.Transition(submission.Status, models.SubmissionStatusGraded, essaysResolved); err != nil {
		return nil, err
	}

	feedback := req.Feedback
	if feedback == nil {
		feedback = submission.Feedback
	}
	if err := s.submissions.ApplyGrading(ctx, submission.ID, scores, total, feedback, submission.Status, models.SubmissionStatusGraded); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grading result")
	}

	if s.metrics != nil {
		s.metrics.RecordSubmissionGraded(autoGraded)
	}
	s.invalidateSummaries(ctx, submission.StudentID)
	s.logger.Info("submission graded",
		zap.String("submission_id", submission.ID),
		zap.String("assignment_id", assignment.ID),
		zap.Float64("total_score", total),
		zap.Int("auto_graded_questions", autoGraded))

	submission.PerQuestionScores = scores
	submission.TotalScore = &total
	submission.Status = models.SubmissionStatusGraded
	submission.Feedback = feedback
	return submission, nil
}

// Return sends a graded submission back to the student for revision.
func (s *GradingService) Return(ctx context.Context, req ReturnRequest) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if req.TeacherID != "" {
		assignment, err := s.loadAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return nil, err
		}
		if assignment.TeacherID != req.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
		}
	}

	if err := grading.Transition(submission.Status, models.SubmissionStatusReturned, true); err != nil {
		return nil, err
	}
	if err := s.submissions.SetStatus(ctx, submission.ID, submission.Status, models.SubmissionStatusReturned, req.Feedback); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return submission")
	}

	s.invalidateSummaries(ctx, submission.StudentID)
	submission.Status = models.SubmissionStatusReturned
	if req.Feedback != nil {
		submission.Feedback = req.Feedback
	}
	return submission, nil
}

// Get returns a single submission.
func (s *GradingService) Get(ctx context.Context, id string) (*models.Submission, error) {
	return s.loadSubmission(ctx, id)
}

// ListByAssignment returns every submission for an assignment. A non-empty
// teacherID restricts the listing to the assignment's owner; admins pass an
// empty id.
func (s *GradingService) ListByAssignment(ctx context.Context, assignmentID, teacherID string) ([]models.Submission, error) {
	if teacherID != "" {
		assignment, err := s.loadAssignment(ctx, assignmentID)
		if err != nil {
			return nil, err
		}
		if assignment.TeacherID != teacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
		}
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// collectManualScores merges request scores over scores already recorded on
// the submission from a previous pass, so re-grading after a return does not
// require re-entering every essay score.
func (s *GradingService) collectManualScores(submission *models.Submission, fromRequest map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(fromRequest))
	for id, score := range submission.PerQuestionScores {
		merged[id] = score
	}
	for id, score := range fromRequest {
		merged[id] = score
	}
	return merged
}

func (s *GradingService) loadSubmission(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *GradingService) loadAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *GradingService) invalidateSummaries(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "performance:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate performance cache", zap.Error(err))
	}
}
