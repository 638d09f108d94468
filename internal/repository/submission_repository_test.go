package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
	appErrors "github.com/noah-isme/lms-grading-api/pkg/errors"
)

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubmissionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	submittedAt := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO assignment_submissions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submitted_at"}).AddRow("sub-new", submittedAt))

	submission := &models.Submission{
		ID:           "sub-new",
		AssignmentID: "as-1",
		StudentID:    "stu-1",
		Answers:      models.AnswerMap{"q1": "Riyadh"},
	}
	require.NoError(t, repo.Create(context.Background(), submission))
	assert.Equal(t, "sub-new", submission.ID)
	assert.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateResubmitKeepsStoredID(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	// the conflict target updates the earlier row in place, so RETURNING
	// yields that row's id rather than the one generated for this call
	resubmittedAt := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO assignment_submissions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "submitted_at"}).AddRow("sub-original", resubmittedAt))

	submission := &models.Submission{
		AssignmentID: "as-1",
		StudentID:    "stu-1",
		Answers:      models.AnswerMap{"q1": "Jeddah"},
	}
	require.NoError(t, repo.Create(context.Background(), submission))
	assert.Equal(t, "sub-original", submission.ID)
	assert.WithinDuration(t, resubmittedAt, submission.SubmittedAt, time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "answers", "per_question_scores", "total_score", "status", "feedback", "submitted_at", "graded_at", "updated_at"}).
		AddRow("sub-1", "as-1", "stu-1", []byte(`{"q1":"Riyadh"}`), []byte(`{"q1":10}`), 10.0, models.SubmissionStatusGraded, nil, time.Now(), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, assignment_id, student_id, answers").
		WithArgs("sub-1").
		WillReturnRows(rows)

	submission, err := repo.FindByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Riyadh", submission.Answers["q1"])
	assert.Equal(t, 10.0, submission.PerQuestionScores["q1"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApplyGrading(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyGrading(context.Background(), "sub-1", models.ScoreMap{"q1": 10}, 10, nil,
		models.SubmissionStatusSubmitted, models.SubmissionStatusGraded)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApplyGradingConflict(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	// concurrent grading already advanced the row past the expected status
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyGrading(context.Background(), "sub-1", models.ScoreMap{"q1": 10}, 10, nil,
		models.SubmissionStatusSubmitted, models.SubmissionStatusGraded)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetStatusConflict(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), "sub-1", models.SubmissionStatusGraded, models.SubmissionStatusReturned, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListGradedByStudent(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "status", "total_score", "total_max_score"}).
		AddRow("sub-1", "as-1", "stu-1", models.SubmissionStatusGraded, 18.0, 20.0).
		AddRow("sub-2", "as-2", "stu-1", models.SubmissionStatusReturned, 7.0, 10.0)
	mock.ExpectQuery("SELECT s.id, s.assignment_id, s.student_id, s.status").
		WithArgs("stu-1", models.SubmissionStatusSubmitted).
		WillReturnRows(rows)

	graded, err := repo.ListGradedByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, graded, 2)
	assert.Equal(t, 18.0, graded[0].TotalScore)
	assert.Equal(t, 20.0, graded[0].TotalMaxScore)
	require.NoError(t, mock.ExpectationsWereMet())
}
