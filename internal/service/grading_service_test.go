package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

type mockSubmissionRepo struct {
	submissions map[string]*models.Submission
	nextID      int
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.submissions == nil {
		m.submissions = make(map[string]*models.Submission)
	}
	if submission.ID == "" {
		m.nextID++
		submission.ID = fmt.Sprintf("sub%d", m.nextID)
	}
	submission.Status = models.SubmissionStatusSubmitted
	stored := *submission
	m.submissions[submission.ID] = &stored
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	var list []models.Submission
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *mockSubmissionRepo) ApplyGrading(ctx context.Context, id string, scores models.ScoreMap, total float64, feedback *string, expected, next models.SubmissionStatus) error {
	s, ok := m.submissions[id]
	if !ok || s.Status != expected {
		return appErrors.Clone(appErrors.ErrConflict, "submission changed concurrently")
	}
	s.PerQuestionScores = scores
	s.TotalScore = &total
	s.Feedback = feedback
	s.Status = next
	return nil
}

func (m *mockSubmissionRepo) SetStatus(ctx context.Context, id string, expected, next models.SubmissionStatus, feedback *string) error {
	s, ok := m.submissions[id]
	if !ok || s.Status != expected {
		return appErrors.Clone(appErrors.ErrConflict, "submission changed concurrently")
	}
	s.Status = next
	if feedback != nil {
		s.Feedback = feedback
	}
	return nil
}

type mockAssignmentReader struct {
	assignments map[string]*models.Assignment
}

func (m *mockAssignmentReader) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentChecker struct {
	enrolled map[string]bool
}

func (m *mockEnrollmentChecker) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.enrolled[studentID+"/"+courseID], nil
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

type mockGradingMetrics struct {
	graded     int
	autoGraded int
}

func (m *mockGradingMetrics) RecordSubmissionGraded(autoGradedQuestions int) {
	m.graded++
	m.autoGraded += autoGradedQuestions
}

func mixedAssignment() *models.Assignment {
	return &models.Assignment{
		ID:            "as1",
		CourseID:      "course1",
		TeacherID:     "t1",
		Title:         "Midterm",
		Type:          models.AssignmentTypeExam,
		TotalMaxScore: 20,
		Questions: []models.Question{
			{
				ID: "q1", AssignmentID: "as1", Text: "Capital of Saudi Arabia?",
				Type: models.QuestionTypeMultipleChoice, MaxScore: 10, Position: 1,
				Answer: &models.CorrectAnswer{
					QuestionID:         "q1",
					CorrectAnswer:      "Riyadh",
					AcceptedVariations: pq.StringArray{"Riyadh", "Jeddah", "Dammam", "Abha"},
				},
			},
			{
				ID: "q2", AssignmentID: "as1", Text: "Discuss the water cycle.",
				Type: models.QuestionTypeEssay, MaxScore: 10, Position: 2,
			},
		},
	}
}

func newGradingFixture() (*GradingService, *mockSubmissionRepo, *mockInvalidator, *mockGradingMetrics) {
	submissions := &mockSubmissionRepo{}
	assignments := &mockAssignmentReader{assignments: map[string]*models.Assignment{"as1": mixedAssignment()}}
	enrollments := &mockEnrollmentChecker{enrolled: map[string]bool{"stu1/course1": true}}
	cache := &mockInvalidator{}
	metrics := &mockGradingMetrics{}
	svc := NewGradingService(submissions, assignments, enrollments, cache, metrics, validator.New(), zap.NewNop())
	return svc, submissions, cache, metrics
}

func TestGradingServiceSubmit(t *testing.T) {
	svc, submissions, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "  riyadh ", "q2": "water evaporates"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, submissions.submissions[sub.ID].Status)
	assert.Equal(t, "  riyadh ", submissions.submissions[sub.ID].Answers["q1"])
}

func TestGradingServiceSubmitUnknownQuestion(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q99": "orphan"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
}

func TestGradingServiceSubmitNotEnrolled(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "outsider",
		Answers:      map[string]string{"q1": "Riyadh"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGradingServiceGradeRequiresEssayScores(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh", "q2": "long essay"},
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{SubmissionID: sub.ID, TeacherID: "t1"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
}

func TestGradingServiceGradeMixedQuestions(t *testing.T) {
	svc, submissions, cache, metrics := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": " riyadh  ", "q2": "long essay"},
	})
	require.NoError(t, err)

	feedback := "well done"
	graded, err := svc.Grade(context.Background(), GradeRequest{
		SubmissionID: sub.ID,
		TeacherID:    "t1",
		ManualScores: map[string]float64{"q2": 8},
		Feedback:     &feedback,
	})
	require.NoError(t, err)
	require.NotNil(t, graded.TotalScore)
	assert.Equal(t, 18.0, *graded.TotalScore)
	assert.Equal(t, models.SubmissionStatusGraded, graded.Status)
	assert.Equal(t, 10.0, graded.PerQuestionScores["q1"])
	assert.Equal(t, 8.0, graded.PerQuestionScores["q2"])

	stored := submissions.submissions[sub.ID]
	assert.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, "well done", *stored.Feedback)

	assert.Equal(t, 1, metrics.graded)
	assert.Equal(t, 1, metrics.autoGraded)
	assert.Contains(t, cache.patterns, "performance:stu1:*")
}

func TestGradingServiceGradeManualScoreOutOfRange(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh", "q2": "essay"},
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		SubmissionID: sub.ID,
		TeacherID:    "t1",
		ManualScores: map[string]float64{"q2": 15},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradingServiceGradeWrongTeacher(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh"},
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{SubmissionID: sub.ID, TeacherID: "impostor"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGradingServiceListByAssignmentWrongTeacher(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh"},
	})
	require.NoError(t, err)

	_, err = svc.ListByAssignment(context.Background(), "as1", "impostor")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	// the owning teacher and admins (empty id) still see the listing
	owned, err := svc.ListByAssignment(context.Background(), "as1", "t1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	all, err := svc.ListByAssignment(context.Background(), "as1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGradingServiceReturnAndRegrade(t *testing.T) {
	svc, submissions, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh", "q2": "essay"},
	})
	require.NoError(t, err)

	_, err = svc.Grade(context.Background(), GradeRequest{
		SubmissionID: sub.ID,
		TeacherID:    "t1",
		ManualScores: map[string]float64{"q2": 6},
	})
	require.NoError(t, err)

	note := "please expand the second answer"
	returned, err := svc.Return(context.Background(), ReturnRequest{SubmissionID: sub.ID, TeacherID: "t1", Feedback: &note})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusReturned, returned.Status)
	assert.Equal(t, models.SubmissionStatusReturned, submissions.submissions[sub.ID].Status)

	// Re-grading after a return keeps the previous essay score unless a new
	// one is supplied.
	regraded, err := svc.Grade(context.Background(), GradeRequest{SubmissionID: sub.ID, TeacherID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, regraded.TotalScore)
	assert.Equal(t, 16.0, *regraded.TotalScore)
	assert.Equal(t, models.SubmissionStatusGraded, regraded.Status)
}

func TestGradingServiceReturnBeforeGrading(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	sub, err := svc.Submit(context.Background(), SubmitRequest{
		AssignmentID: "as1",
		StudentID:    "stu1",
		Answers:      map[string]string{"q1": "Riyadh"},
	})
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), ReturnRequest{SubmissionID: sub.ID, TeacherID: "t1"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestGradingServiceGradeMissingSubmission(t *testing.T) {
	svc, _, _, _ := newGradingFixture()

	_, err := svc.Grade(context.Background(), GradeRequest{SubmissionID: "nope", TeacherID: "t1"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
